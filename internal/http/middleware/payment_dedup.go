package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

const (
	DedupWindow        = 60 * time.Second
	DedupRetention     = 30 * time.Minute
	DedupSweepInterval = 10 * time.Minute
	DedupNamespace     = "payattempt:"

	dedupPathMarker = "create-payment-intent"
	headerSessionID = "X-Session-Id"
	maxDedupBody    = 1 << 20
)

type DedupOption func(*PaymentDedup)

func WithDedupWindow(window, retention time.Duration) DedupOption {
	return func(d *PaymentDedup) {
		if window > 0 {
			d.window = window
		}
		if retention >= window {
			d.retention = retention
		}
	}
}

// PaymentDedup rejects a repeated payment-intent request for the same
// registrant tuple while an earlier one is recent.
type PaymentDedup struct {
	log       *logger.Logger
	store     idempotency.Store
	metrics   *observability.Metrics
	window    time.Duration
	retention time.Duration
}

func NewPaymentDedup(log *logger.Logger, store idempotency.Store, metrics *observability.Metrics, opts ...DedupOption) *PaymentDedup {
	d := &PaymentDedup{
		log:       log.With("Middleware", "PaymentDedup"),
		store:     store,
		metrics:   metrics,
		window:    DedupWindow,
		retention: DedupRetention,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type dedupFields struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AttemptKey hashes the registrant tuple. Fields are trimmed and lower-cased.
func AttemptKey(sessionID, email, firstName, lastName string) string {
	parts := []string{sessionID, email, firstName, lastName}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (d *PaymentDedup) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d == nil || d.store == nil || !strings.Contains(c.Request.URL.Path, dedupPathMarker) {
			c.Next()
			return
		}

		fields, ok := d.readFields(c)
		if !ok {
			c.Next()
			return
		}
		key := DedupNamespace + AttemptKey(fields.SessionID, fields.Email, fields.FirstName, fields.LastName)

		existing, claimed, err := d.store.Claim(c.Request.Context(), key, idempotency.Record{}, d.window, d.retention)
		if err != nil {
			d.log.Warn("Dedup store unavailable; allowing request", "error", err)
			c.Next()
			return
		}
		if !claimed {
			d.metrics.TrackDuplicate("dedup")
			d.log.Info("Duplicate payment request rejected", "session_id", fields.SessionID, "first_seen", existing.Timestamp)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorBody{
				Error:               "duplicate_request",
				Message:             "a payment request for this registration was received moments ago",
				UserFriendlyMessage: services.DuplicateUserMessage,
			})
			return
		}
		c.Next()
	}
}

// readFields extracts the tuple and restores the body for the handler. It
// reports false when there is nothing to key on.
func (d *PaymentDedup) readFields(c *gin.Context) (dedupFields, bool) {
	var f dedupFields
	if c.Request.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDedupBody))
		_ = c.Request.Body.Close()
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			d.log.Warn("Dedup could not read body", "error", err)
			return f, false
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			_ = json.Unmarshal(raw, &f)
		}
	}
	if strings.TrimSpace(f.SessionID) == "" {
		f.SessionID = c.GetHeader(headerSessionID)
	}
	if strings.TrimSpace(f.SessionID) == "" && strings.TrimSpace(f.Email) == "" {
		return f, false
	}
	return f, true
}
