package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/matside-backend/internal/data/repos"
	"github.com/yungbote/matside-backend/internal/data/repos/payments"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/paymentlock"
	"github.com/yungbote/matside-backend/internal/platform/ctxutil"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/pricing"
)

type PaymentIntentResult struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Reused          bool   `json:"reused"`
}

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, in RegistrationDetails) (*PaymentIntentResult, error)
	LockStatus(ctx context.Context, sessionID string) (paymentlock.Lock, error)
}

type paymentService struct {
	log      *logger.Logger
	regs     repos.RegistrationRepo
	locks    *paymentlock.Locker
	stripe   stripeclient.Client
	catalog  *pricing.Catalog
	metrics  *observability.Metrics
	currency string
}

func NewPaymentService(
	log *logger.Logger,
	regs repos.RegistrationRepo,
	locks *paymentlock.Locker,
	stripe stripeclient.Client,
	catalog *pricing.Catalog,
	metrics *observability.Metrics,
	currency string,
) PaymentService {
	if catalog == nil {
		catalog = pricing.Default()
	}
	if strings.TrimSpace(currency) == "" {
		currency = "usd"
	}
	return &paymentService{
		log:      log.With("service", "PaymentService"),
		regs:     regs,
		locks:    locks,
		stripe:   stripe,
		catalog:  catalog,
		metrics:  metrics,
		currency: strings.ToLower(currency),
	}
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, in RegistrationDetails) (*PaymentIntentResult, error) {
	in.normalize()
	if in.SessionID == "" {
		return nil, ErrMissingSession
	}
	amount, err := s.catalog.CalculateRegistrationAmount(in.PricingRequest())
	if err != nil {
		return nil, pricingError(err)
	}
	if ev, ok := s.catalog.GetEventPricing(in.EventID); ok && in.EventName == "" {
		in.EventName = ev.Name
	}
	if s.stripe == nil {
		return nil, ErrPaymentProvider
	}

	acquired, err := s.locks.AcquireLock(ctx, in.SessionID)
	if err != nil {
		// Fail open; the intent idempotency key still collapses retries.
		s.log.Warn("Payment lock unavailable; continuing without it", "session_id", in.SessionID, "error", err)
		acquired = true
	}
	if !acquired {
		return s.reuseOrReject(ctx, in.SessionID)
	}

	intent, err := s.stripe.CreatePaymentIntent(ctx, stripeclient.IntentParams{
		Amount:         amount,
		Currency:       s.currency,
		ReceiptEmail:   in.Email,
		Description:    describe(in),
		Metadata:       in.Metadata(),
		IdempotencyKey: intentIdempotencyKey(in, amount),
	})
	if err != nil {
		if mErr := s.locks.MarkFailed(ctx, in.SessionID); mErr != nil {
			s.log.Warn("Failed to mark payment lock failed", "session_id", in.SessionID, "error", mErr)
		}
		if rErr := s.locks.ReleaseLock(ctx, in.SessionID); rErr != nil {
			s.log.Warn("Failed to release payment lock", "session_id", in.SessionID, "error", rErr)
		}
		s.metrics.TrackPaymentIntent("failed")
		observability.LogCriticalFailure(s.log, s.metrics, observability.FailurePayment, err, map[string]any{
			"session_id": in.SessionID,
			"event_id":   in.EventID,
			"option":     in.Option,
			"amount":     amount,
		})
		return nil, ErrPaymentProvider
	}

	if err := s.locks.UpdateLock(ctx, in.SessionID, intent.ID); err != nil {
		s.log.Warn("Failed to complete payment lock", "session_id", in.SessionID, "payment_intent_id", intent.ID, "error", err)
	}

	reg := in.toRegistration(intent.ID, amount, s.currency)
	if err := s.regs.Create(dbctx.Context{Ctx: ctx}, reg); err != nil && !errors.Is(err, payments.ErrConflict) {
		// The webhook upserts the row again once the charge settles.
		s.log.Warn("Failed to record pending registration", "payment_intent_id", intent.ID, "error", err)
	}

	s.metrics.TrackPaymentIntent("created")
	s.log.With(ctxutil.LogFields(ctx)...).Info("Payment intent created", "payment_intent_id", intent.ID, "event_id", in.EventID, "option", in.Option, "amount", amount)
	return &PaymentIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          amount,
		Currency:        s.currency,
	}, nil
}

// reuseOrReject answers a second request for a session that already holds a lock.
// A completed lock hands back the intent it created; anything else is a duplicate.
func (s *paymentService) reuseOrReject(ctx context.Context, sessionID string) (*PaymentIntentResult, error) {
	lk, ok, err := s.locks.Inspect(ctx, sessionID)
	if err != nil {
		s.log.Warn("Failed to inspect payment lock", "session_id", sessionID, "error", err)
	}
	if ok && lk.Status == paymentlock.StatusCompleted && lk.PaymentIntentID != "" {
		intent, err := s.stripe.GetPaymentIntent(ctx, lk.PaymentIntentID)
		if err == nil {
			s.metrics.TrackPaymentIntent("reused")
			return &PaymentIntentResult{
				PaymentIntentID: intent.ID,
				ClientSecret:    intent.ClientSecret,
				Amount:          intent.Amount,
				Currency:        intent.Currency,
				Reused:          true,
			}, nil
		}
		s.log.Warn("Failed to load locked payment intent", "payment_intent_id", lk.PaymentIntentID, "error", err)
	}
	s.metrics.TrackDuplicate("lock")
	return nil, ErrDuplicatePayment
}

func (s *paymentService) LockStatus(ctx context.Context, sessionID string) (paymentlock.Lock, error) {
	lk, ok, err := s.locks.Inspect(ctx, sessionID)
	if err != nil {
		if errors.Is(err, paymentlock.ErrMissingSession) {
			return paymentlock.Lock{}, ErrMissingSession
		}
		return paymentlock.Lock{}, err
	}
	if !ok {
		return paymentlock.Lock{SessionID: strings.TrimSpace(sessionID), Status: paymentlock.StatusNone}, nil
	}
	return lk, nil
}

func describe(in RegistrationDetails) string {
	name := in.EventName
	if name == "" {
		name = fmt.Sprintf("Event %d", in.EventID)
	}
	desc := fmt.Sprintf("%s (%s)", name, in.Option)
	if len(in.SelectedDates) > 0 {
		desc += " - " + strings.Join(in.SelectedDates, ", ")
	}
	return desc
}

// intentIdempotencyKey is stable for one checkout: same session, selection, registrant and amount.
func intentIdempotencyKey(in RegistrationDetails, amount int64) string {
	parts := []string{
		in.SessionID,
		fmt.Sprint(in.EventID),
		in.Option,
		fmt.Sprint(in.NumberOfDays),
		strings.Join(in.SelectedDates, ","),
		in.Email,
		strings.ToLower(in.FirstName),
		strings.ToLower(in.LastName),
		fmt.Sprint(amount),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "regpi_" + hex.EncodeToString(sum[:16])
}
