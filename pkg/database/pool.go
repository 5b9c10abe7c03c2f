package database

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolConfigChanged is returned when the process already opened its
// database with a different configuration.
var ErrPoolConfigChanged = errors.New("database already opened with a different configuration")

// DatabasePool caches one database handle per process so warm serverless
// invocations reuse the connection instead of dialing again. database/sql
// already reconnects dropped connections, so the handle is never replaced.
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	openedAt time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase returns the process handle, opening it on first use.
func GetDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil {
		if !configEquals(globalPool.config, config) {
			return nil, ErrPoolConfigChanged
		}
		return globalPool.instance, nil
	}

	instance, err := NewDatabase(config)
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("database pool created", zap.Bool("local", config.PostgresDSN == ""))
	globalPool = &DatabasePool{instance: instance, config: config, openedAt: time.Now()}
	return instance, nil
}

func configEquals(a, b DatabaseConfig) bool {
	return a.UseLocalDB == b.UseLocalDB && a.PostgresDSN == b.PostgresDSN
}

// GetConnectionStats reports on the cached handle for the debug endpoint.
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{"status": "no_connection"}
	}

	stats := map[string]interface{}{
		"status":       "connected",
		"opened_at":    globalPool.openedAt.Format(time.RFC3339),
		"use_local_db": globalPool.config.PostgresDSN == "",
	}
	if pg, ok := globalPool.instance.(*PostgresDatabase); ok {
		s := pg.db.Stats()
		stats["open_connections"] = s.OpenConnections
		stats["in_use"] = s.InUse
		stats["idle"] = s.Idle
	}
	return stats
}
