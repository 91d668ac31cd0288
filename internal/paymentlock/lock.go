// Package paymentlock keeps one payment-intent creation in flight per checkout session.
package paymentlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusCreating  Status = "creating"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultSweepInterval = 60 * time.Second
	Namespace            = "paylock:"
)

var ErrMissingSession = errors.New("paymentlock: session id required")

// Lock is a snapshot of a session's lock.
type Lock struct {
	SessionID       string    `json:"sessionId"`
	Status          Status    `json:"status"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type Locker struct {
	log     *logger.Logger
	store   idempotency.Store
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Locker)

func WithTimeout(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Locker) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store idempotency.Store, baseLog *logger.Logger, opts ...Option) *Locker {
	l := &Locker{
		log:     baseLog.With("component", "PaymentLock"),
		store:   store,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) Timeout() time.Duration { return l.timeout }

func key(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrMissingSession
	}
	return Namespace + sessionID, nil
}

// AcquireLock starts a "creating" lock. It returns false while an unexpired
// lock of any status exists for the session.
func (l *Locker) AcquireLock(ctx context.Context, sessionID string) (bool, error) {
	k, err := key(sessionID)
	if err != nil {
		return false, err
	}
	existing, claimed, err := l.store.Claim(ctx, k, idempotency.Record{State: string(StatusCreating)}, l.timeout, l.timeout)
	if err != nil {
		return false, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !claimed {
		l.log.Debug("Payment lock held", "session_id", sessionID, "status", existing.State)
	}
	return claimed, nil
}

// Inspect returns the live lock for the session. Locks older than the timeout
// are removed and reported as absent.
func (l *Locker) Inspect(ctx context.Context, sessionID string) (Lock, bool, error) {
	k, err := key(sessionID)
	if err != nil {
		return Lock{}, false, err
	}
	rec, ok, err := l.store.Get(ctx, k)
	if err != nil {
		return Lock{}, false, fmt.Errorf("read payment lock: %w", err)
	}
	if !ok {
		return Lock{}, false, nil
	}
	if l.now().Sub(rec.Timestamp) >= l.timeout {
		if err := l.store.Delete(ctx, k); err != nil {
			l.log.Warn("Failed to evict expired payment lock", "session_id", sessionID, "error", err)
		}
		return Lock{}, false, nil
	}
	return Lock{
		SessionID:       sessionID,
		Status:          Status(rec.State),
		PaymentIntentID: rec.Ref,
		Timestamp:       rec.Timestamp,
	}, true, nil
}

// GetExistingIntent returns the payment intent attached to a live lock.
func (l *Locker) GetExistingIntent(ctx context.Context, sessionID string) (string, bool, error) {
	lk, ok, err := l.Inspect(ctx, sessionID)
	if err != nil || !ok || lk.PaymentIntentID == "" {
		return "", false, err
	}
	return lk.PaymentIntentID, true, nil
}

// UpdateLock marks the lock completed with the created intent and restarts its timeout.
func (l *Locker) UpdateLock(ctx context.Context, sessionID, paymentIntentID string) error {
	k, err := key(sessionID)
	if err != nil {
		return err
	}
	rec := idempotency.Record{State: string(StatusCompleted), Ref: paymentIntentID, Timestamp: l.now()}
	if err := l.store.Put(ctx, k, rec, l.timeout); err != nil {
		return fmt.Errorf("update payment lock: %w", err)
	}
	return nil
}

// MarkFailed flips a live lock to failed without extending its lifetime.
func (l *Locker) MarkFailed(ctx context.Context, sessionID string) error {
	k, err := key(sessionID)
	if err != nil {
		return err
	}
	rec, ok, err := l.store.Get(ctx, k)
	if err != nil {
		return fmt.Errorf("mark payment lock failed: %w", err)
	}
	if !ok {
		return nil
	}
	remaining := l.timeout - l.now().Sub(rec.Timestamp)
	if remaining <= 0 {
		return l.store.Delete(ctx, k)
	}
	rec.State = string(StatusFailed)
	if err := l.store.Put(ctx, k, rec, remaining); err != nil {
		return fmt.Errorf("mark payment lock failed: %w", err)
	}
	return nil
}

func (l *Locker) ReleaseLock(ctx context.Context, sessionID string) error {
	k, err := key(sessionID)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, k); err != nil {
		return fmt.Errorf("release payment lock: %w", err)
	}
	return nil
}

func (l *Locker) GetLockStatus(ctx context.Context, sessionID string) (Status, error) {
	lk, ok, err := l.Inspect(ctx, sessionID)
	if err != nil {
		return StatusNone, err
	}
	if !ok {
		return StatusNone, nil
	}
	return lk.Status, nil
}
