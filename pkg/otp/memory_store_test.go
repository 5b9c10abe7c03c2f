package otp

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()

	_ = store.Set(ctx, &Record{Contact: "old@example.com", Code: "111111", ExpiresAt: now.Add(-time.Second)})
	_ = store.Set(ctx, &Record{Contact: "new@example.com", Code: "222222", ExpiresAt: now.Add(time.Minute)})

	n, err := store.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if rec, _ := store.Get(ctx, "old@example.com"); rec != nil {
		t.Fatal("expired record survived sweep")
	}
	if rec, _ := store.Get(ctx, "new@example.com"); rec == nil {
		t.Fatal("live record removed by sweep")
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Set(ctx, &Record{Contact: "a@example.com", Code: "111111", ExpiresAt: time.Now().Add(time.Minute)})

	rec, _ := store.Get(ctx, "a@example.com")
	rec.Attempts = 99

	again, _ := store.Get(ctx, "a@example.com")
	if again.Attempts != 0 {
		t.Fatalf("Attempts = %d, want 0; Get must not alias stored state", again.Attempts)
	}
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()
	_ = store.Set(ctx, &Record{Contact: "a@example.com", Code: "111111", ExpiresAt: time.Now().Add(-time.Minute)})

	StartSweeper(ctx, store, 5*time.Millisecond, nil, nil)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never removed the expired record")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}
