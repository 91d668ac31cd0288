package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether an outbound call is worth repeating.
// Caller cancellation is not retryable; per-attempt deadlines are.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs > 0 {
				sleepFor = time.Duration(secs * float64(time.Second))
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy bounds how an outbound call is repeated. Base doubles per attempt
// unless the server sends Retry-After; Max caps either.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// Retry runs call until it succeeds, fails with a non-retryable error, or
// MaxRetries repeats are spent. It returns the number of attempts made.
func Retry(ctx context.Context, log *logger.Logger, p RetryPolicy, op string, call func(ctx context.Context) (*http.Response, error)) (int, error) {
	wait := p.Base
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		resp, err := call(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt > p.MaxRetries || !IsRetryableError(err) {
			return attempt, err
		}
		sleep := JitterSleep(RetryAfterDuration(resp, wait, p.Max))
		if log != nil {
			log.Warn("Outbound call failed; retrying", "op", op, "attempt", attempt, "sleep", sleep.String(), "error", err)
		}
		if err := Sleep(ctx, sleep); err != nil {
			return attempt, err
		}
		wait *= 2
	}
}
