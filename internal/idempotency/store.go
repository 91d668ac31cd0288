// Package idempotency provides a keyed record store with per-key expiry,
// shared by the payment lock and the request dedup layer.
package idempotency

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyKey = errors.New("idempotency: empty key")
	ErrClosed   = errors.New("idempotency: store closed")
)

// Record is what the store keeps per key. State and Ref are opaque to the store.
type Record struct {
	State     string
	Ref       string
	Timestamp time.Time
}

type Store interface {
	// Claim stores rec under key unless a record stamped less than window ago
	// exists. When it does, that record is returned with claimed=false.
	Claim(ctx context.Context, key string, rec Record, window, ttl time.Duration) (existing Record, claimed bool, err error)
	Get(ctx context.Context, key string) (Record, bool, error)
	// Put upserts rec. A zero Timestamp is replaced by the store clock.
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
	prefix        string
}

type Option func(*options)

// WithClock overrides time.Now for stamping and expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSweepInterval sets how often the memory backend purges expired keys.
// Zero disables the janitor.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// WithPrefix namespaces keys in the redis backend.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
