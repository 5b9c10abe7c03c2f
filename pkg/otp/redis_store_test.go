package otp

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewRedisStore(client)
	store.now = clock.Now
	return store, mr, clock
}

func TestRedisStoreGetMissing(t *testing.T) {
	t.Parallel()
	store, _, _ := newRedisStore(t)

	rec, err := store.Get(context.Background(), "nobody@example.com")
	if err != nil || rec != nil {
		t.Fatalf("Get = %+v, %v, want nil, nil", rec, err)
	}
	rec, err = store.IncrAttempts(context.Background(), "nobody@example.com")
	if err != nil || rec != nil {
		t.Fatalf("IncrAttempts = %+v, %v, want nil, nil", rec, err)
	}
}

func TestRedisStoreKeepsTTLAcrossAttempts(t *testing.T) {
	t.Parallel()
	store, mr, clock := newRedisStore(t)
	ctx := context.Background()
	key := redisKeyPrefix + "a@example.com"

	rec := &Record{Contact: "a@example.com", Code: "482913", ExpiresAt: clock.Now().Add(10 * time.Minute)}
	if err := store.Set(ctx, rec); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if ttl := mr.TTL(key); ttl != 10*time.Minute {
		t.Fatalf("TTL = %v, want 10m", ttl)
	}

	mr.FastForward(4 * time.Minute)
	got, err := store.IncrAttempts(ctx, "a@example.com")
	if err != nil || got == nil {
		t.Fatalf("IncrAttempts = %+v, %v", got, err)
	}
	if got.Attempts != 1 || got.Code != "482913" {
		t.Fatalf("record = %+v, want one attempt on the same code", got)
	}
	if ttl := mr.TTL(key); ttl != 6*time.Minute {
		t.Fatalf("TTL after attempt = %v, want 6m", ttl)
	}

	stored, _ := store.Get(ctx, "a@example.com")
	if stored == nil || stored.Attempts != 1 || !stored.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("stored = %+v, want attempts 1 with original expiry", stored)
	}

	mr.FastForward(6*time.Minute + time.Second)
	if stored, _ := store.Get(ctx, "a@example.com"); stored != nil {
		t.Fatalf("record outlived its TTL: %+v", stored)
	}
}

func TestRedisStoreSetExpiredDeletes(t *testing.T) {
	t.Parallel()
	store, mr, clock := newRedisStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, &Record{Contact: "b@example.com", Code: "111111", ExpiresAt: clock.Now().Add(time.Minute)})
	if !mr.Exists(redisKeyPrefix + "b@example.com") {
		t.Fatal("live record not written")
	}

	if err := store.Set(ctx, &Record{Contact: "b@example.com", Code: "111111", ExpiresAt: clock.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if mr.Exists(redisKeyPrefix + "b@example.com") {
		t.Fatal("expired record still stored")
	}
	if n, err := store.Sweep(ctx, clock.Now()); n != 0 || err != nil {
		t.Fatalf("Sweep = %d, %v, want no-op", n, err)
	}
}

func TestServiceOverRedisStore(t *testing.T) {
	t.Parallel()
	store, _, clock := newRedisStore(t)
	sender := &recordingSender{}
	svc := NewService(store, sender, Config{Now: clock.Now}, nil)

	mustSend(t, svc, "c@example.com")
	code := sender.code("c@example.com")

	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	if res := mustVerify(t, svc, "c@example.com", wrong); res.Message != "Invalid OTP. 2 attempts remaining." {
		t.Fatalf("wrong code message = %q", res.Message)
	}
	if res := mustVerify(t, svc, "c@example.com", code); !res.Success {
		t.Fatalf("Verify = %+v, want success", res)
	}
	if res := mustVerify(t, svc, "c@example.com", code); res.Message != MsgNoOTP {
		t.Fatalf("reuse = %+v, want %q", res, MsgNoOTP)
	}

	mustSend(t, svc, "c@example.com")
	for i := 0; i < 3; i++ {
		mustVerify(t, svc, "c@example.com", wrong)
	}
	if res := mustVerify(t, svc, "c@example.com", sender.code("c@example.com")); res.Message != MsgTooManyAttempts {
		t.Fatalf("after lockout = %+v, want %q", res, MsgTooManyAttempts)
	}
}

// countGuesses fires n concurrent wrong guesses and returns how many were
// judged against the code rather than refused outright.
func countGuesses(t *testing.T, svc *Service, addr, wrong string, n int) int {
	t.Helper()
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		judged int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Verify(context.Background(), addr, wrong)
			if err != nil {
				t.Errorf("Verify error = %v", err)
				return
			}
			if strings.HasPrefix(res.Message, "Invalid OTP.") {
				mu.Lock()
				judged++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return judged
}

func TestConcurrentGuessesRespectLimitOverRedis(t *testing.T) {
	t.Parallel()
	store, _, clock := newRedisStore(t)
	sender := &recordingSender{}
	svc := NewService(store, sender, Config{Now: clock.Now}, nil)

	mustSend(t, svc, "d@example.com")
	code := sender.code("d@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}

	if judged := countGuesses(t, svc, "d@example.com", wrong, 5); judged > 3 {
		t.Fatalf("%d guesses were compared, want at most 3", judged)
	}
	if res := mustVerify(t, svc, "d@example.com", code); res.Success {
		t.Fatal("right code accepted after the attempt limit was spent")
	}
}
