package otp

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore is a process-local Store. Records do not survive restarts and
// are not shared between instances; use RedisStore for that.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, contact string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[contact]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Set(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Contact] = *rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, contact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, contact)
	return nil
}

func (s *MemoryStore) IncrAttempts(_ context.Context, contact string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[contact]
	if !ok {
		return nil, nil
	}
	rec.Attempts++
	s.records[contact] = rec
	return &rec, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			removed++
		}
	}
	return removed, nil
}

// Len is the number of live records, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweeper runs store.Sweep every interval until ctx is done.
func StartSweeper(ctx context.Context, store Store, interval time.Duration, now func() time.Time, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.Sweep(ctx, now())
				if err != nil {
					logger.Warn("otp sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Debug("otp sweep removed expired records", zap.Int("removed", n))
				}
			}
		}
	}()
}
