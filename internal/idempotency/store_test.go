package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	store   Store
	advance func(time.Duration)
}

func backends(t *testing.T) map[string]func(t *testing.T) harness {
	return map[string]func(t *testing.T) harness{
		"memory": func(t *testing.T) harness {
			clock := newFakeClock()
			s := NewMemory(WithClock(clock.Now))
			t.Cleanup(func() { _ = s.Close() })
			return harness{store: s, advance: clock.Advance}
		},
		"redis": func(t *testing.T) harness {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				_ = client.Close()
				mr.Close()
			})
			clock := newFakeClock()
			s := NewRedis(client, WithClock(clock.Now), WithPrefix("test:"))
			return harness{store: s, advance: func(d time.Duration) {
				clock.Advance(d)
				mr.FastForward(d)
			}}
		},
	}
}

func TestStoreClaimWindow(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := mk(t)
			ctx := context.Background()

			_, claimed, err := h.store.Claim(ctx, "k", Record{State: "creating"}, time.Minute, 30*time.Minute)
			if err != nil || !claimed {
				t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
			}

			h.advance(30 * time.Second)
			existing, claimed, err := h.store.Claim(ctx, "k", Record{State: "other"}, time.Minute, 30*time.Minute)
			if err != nil {
				t.Fatalf("second claim: %v", err)
			}
			if claimed {
				t.Fatalf("second claim inside window should be rejected")
			}
			if existing.State != "creating" {
				t.Fatalf("existing state: want=%q got=%q", "creating", existing.State)
			}

			h.advance(31 * time.Second)
			rec, claimed, err := h.store.Claim(ctx, "k", Record{State: "again"}, time.Minute, 30*time.Minute)
			if err != nil || !claimed {
				t.Fatalf("claim after window: claimed=%v err=%v", claimed, err)
			}
			if rec.State != "again" || rec.Timestamp.IsZero() {
				t.Fatalf("claimed record not returned: %+v", rec)
			}
		})
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := mk(t)
			ctx := context.Background()
			if _, _, err := h.store.Claim(ctx, "k", Record{State: "creating"}, 30*time.Second, 30*time.Second); err != nil {
				t.Fatalf("claim: %v", err)
			}
			if _, ok, _ := h.store.Get(ctx, "k"); !ok {
				t.Fatalf("record missing before expiry")
			}
			h.advance(31 * time.Second)
			if _, ok, err := h.store.Get(ctx, "k"); ok || err != nil {
				t.Fatalf("record should be gone: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := mk(t)
			ctx := context.Background()
			stamp := time.Date(2026, time.May, 30, 12, 0, 0, 0, time.UTC)

			if err := h.store.Put(ctx, "k", Record{State: "completed", Ref: "pi_1", Timestamp: stamp}, time.Minute); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, ok, err := h.store.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.State != "completed" || got.Ref != "pi_1" || !got.Timestamp.Equal(stamp) {
				t.Fatalf("unexpected record: %+v", got)
			}

			if err := h.store.Put(ctx, "k", Record{State: "failed"}, time.Minute); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _, _ = h.store.Get(ctx, "k")
			if got.State != "failed" || got.Ref != "" || got.Timestamp.IsZero() {
				t.Fatalf("overwrite not applied: %+v", got)
			}

			if err := h.store.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := h.store.Get(ctx, "k"); ok {
				t.Fatalf("record survived delete")
			}
			if err := h.store.Delete(ctx, "missing"); err != nil {
				t.Fatalf("deleting a missing key: %v", err)
			}
		})
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := mk(t)
			_, _, err := h.store.Claim(context.Background(), "", Record{}, time.Second, time.Second)
			if !errors.Is(err, ErrEmptyKey) {
				t.Fatalf("want ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestStoreClaimIsExclusive(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := mk(t)
			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, claimed, err := h.store.Claim(context.Background(), "session", Record{State: "creating"}, 30*time.Second, 30*time.Second)
					if err == nil && claimed {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			if wins != 1 {
				t.Fatalf("exactly one claim should win, got %d", wins)
			}
		})
	}
}
