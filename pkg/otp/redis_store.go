package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "otp:"
	maxTxRetries   = 10
)

// RedisStore shares OTP state between every instance pointing at the same
// Redis. Keys carry a TTL matching the record expiry, so Redis does the sweeping.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, contact string) (*Record, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+contact).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read otp record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode otp record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, rec *Record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, rec.Contact)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode otp record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+rec.Contact, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp record: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, contact string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+contact).Err(); err != nil {
		return fmt.Errorf("failed to delete otp record: %w", err)
	}
	return nil
}

// IncrAttempts rewrites the record under WATCH so concurrent guesses from
// other instances each count. The key keeps its remaining TTL.
func (s *RedisStore) IncrAttempts(ctx context.Context, contact string) (*Record, error) {
	key := redisKeyPrefix + contact
	for i := 0; i < maxTxRetries; i++ {
		var out *Record
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("failed to decode otp record: %w", err)
			}
			rec.Attempts++
			updated, err := json.Marshal(&rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			if err == nil {
				out = &rec
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to count otp attempt: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("failed to count otp attempt: %w", redis.TxFailedErr)
}

// Sweep is a no-op: expired keys are evicted by Redis itself.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
