package app

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/matside-backend/internal/http/middleware"
	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/paymentlock"
)

type IdempotencyBackend string

const (
	IdempotencyBackendMemory IdempotencyBackend = "memory"
	IdempotencyBackendRedis  IdempotencyBackend = "redis"
)

type IdempotencyBackendErrorCode string

const (
	IdempotencyBackendErrorInvalid      IdempotencyBackendErrorCode = "invalid_backend"
	IdempotencyBackendErrorMissingRedis IdempotencyBackendErrorCode = "missing_redis_addr"
)

type IdempotencyBackendError struct {
	Code    IdempotencyBackendErrorCode
	Backend string
	Cause   error
}

func (e *IdempotencyBackendError) Error() string {
	if e == nil {
		return "invalid idempotency backend config"
	}
	return fmt.Sprintf("invalid idempotency backend config (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *IdempotencyBackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveIdempotencyBackend picks the store for locks and dedup records.
// An unset backend means redis when an address is configured, memory otherwise.
func resolveIdempotencyBackend(raw string, redisAddr string) (IdempotencyBackend, error) {
	hasRedis := strings.TrimSpace(redisAddr) != ""
	switch IdempotencyBackend(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		if hasRedis {
			return IdempotencyBackendRedis, nil
		}
		return IdempotencyBackendMemory, nil
	case IdempotencyBackendMemory:
		return IdempotencyBackendMemory, nil
	case IdempotencyBackendRedis:
		if !hasRedis {
			return "", &IdempotencyBackendError{
				Code:    IdempotencyBackendErrorMissingRedis,
				Backend: raw,
				Cause:   fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_ADDR"),
			}
		}
		return IdempotencyBackendRedis, nil
	default:
		return "", &IdempotencyBackendError{
			Code:    IdempotencyBackendErrorInvalid,
			Backend: raw,
			Cause:   fmt.Errorf("unsupported idempotency backend %q", raw),
		}
	}
}

// Stores holds the lock store and the dedup store. With redis both share one
// client and are separated by key prefix.
type Stores struct {
	Backend IdempotencyBackend
	Locks   idempotency.Store
	Dedup   idempotency.Store
}

func newStores(backend IdempotencyBackend, rdb *redis.Client) Stores {
	if backend == IdempotencyBackendRedis && rdb != nil {
		shared := idempotency.NewRedis(rdb)
		return Stores{Backend: backend, Locks: shared, Dedup: shared}
	}
	return Stores{
		Backend: IdempotencyBackendMemory,
		Locks:   idempotency.NewMemory(idempotency.WithSweepInterval(paymentlock.DefaultSweepInterval)),
		Dedup:   idempotency.NewMemory(idempotency.WithSweepInterval(middleware.DedupSweepInterval)),
	}
}

func (s Stores) Close() {
	if s.Locks != nil {
		_ = s.Locks.Close()
	}
	if s.Dedup != nil && s.Dedup != s.Locks {
		_ = s.Dedup.Close()
	}
}
