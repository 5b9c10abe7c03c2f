package database

import (
	"errors"
	"testing"
)

// not parallel: the pool is process-wide
func TestGetDatabaseCachesOneHandle(t *testing.T) {
	poolMutex.Lock()
	saved := globalPool
	globalPool = nil
	poolMutex.Unlock()
	t.Cleanup(func() {
		poolMutex.Lock()
		globalPool = saved
		poolMutex.Unlock()
	})

	first, err := GetDatabase(DatabaseConfig{UseLocalDB: true})
	if err != nil {
		t.Fatalf("GetDatabase error = %v", err)
	}
	second, err := GetDatabase(DatabaseConfig{UseLocalDB: true, Debug: true})
	if err != nil {
		t.Fatalf("second GetDatabase error = %v", err)
	}
	if first != second {
		t.Fatal("GetDatabase returned a different handle for the same configuration")
	}

	if _, err := GetDatabase(DatabaseConfig{PostgresDSN: "postgres://elsewhere/db"}); !errors.Is(err, ErrPoolConfigChanged) {
		t.Fatalf("changed config error = %v, want ErrPoolConfigChanged", err)
	}

	stats := GetConnectionStats()
	if stats["status"] != "connected" || stats["use_local_db"] != true {
		t.Fatalf("stats = %v", stats)
	}
}
