package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/data/repos"
	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/paymentlock"
	"github.com/yungbote/matside-backend/internal/platform/apierr"
	"github.com/yungbote/matside-backend/internal/platform/ctxutil"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/pricing"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"

	providerStripe  = "stripe"
	inboxCacheTTL   = 24 * time.Hour
	inboxCacheItems = 1 << 16
)

type WebhookResult struct {
	EventID        string `json:"eventId"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Duplicate      bool   `json:"duplicate"`
	RegistrationID string `json:"registrationId,omitempty"`
}

type WebhookService interface {
	// HandleStripeWebhook verifies the signature and processes the event.
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	Process(ctx context.Context, ev *stripeclient.Event) (*WebhookResult, error)
	Close()
}

type webhookService struct {
	db         *gorm.DB
	log        *logger.Logger
	regs       repos.RegistrationRepo
	events     repos.WebhookEventRepo
	locks      *paymentlock.Locker
	stripe     stripeclient.Client
	catalog    *pricing.Catalog
	dispatcher OrderDispatcher
	metrics    *observability.Metrics
	seen       *ristretto.Cache
}

func NewWebhookService(
	db *gorm.DB,
	log *logger.Logger,
	regs repos.RegistrationRepo,
	events repos.WebhookEventRepo,
	locks *paymentlock.Locker,
	stripe stripeclient.Client,
	catalog *pricing.Catalog,
	dispatcher OrderDispatcher,
	metrics *observability.Metrics,
) (WebhookService, error) {
	if catalog == nil {
		catalog = pricing.Default()
	}
	seen, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: inboxCacheItems * 10,
		MaxCost:     inboxCacheItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook inbox cache: %w", err)
	}
	return &webhookService{
		db:         db,
		log:        log.With("service", "WebhookService"),
		regs:       regs,
		events:     events,
		locks:      locks,
		stripe:     stripe,
		catalog:    catalog,
		dispatcher: dispatcher,
		metrics:    metrics,
		seen:       seen,
	}, nil
}

func (s *webhookService) Close() { s.seen.Close() }

func (s *webhookService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.stripe == nil {
		return nil, ErrWebhookNotConfigured
	}
	ev, err := s.stripe.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.TrackWebhookFailure("unverified")
		if errors.Is(err, stripeclient.ErrNotConfigured) {
			return nil, ErrWebhookNotConfigured
		}
		s.log.With(ctxutil.LogFields(ctx)...).Warn("Rejected webhook", "error", err)
		return nil, ErrWebhookSignature
	}
	return s.Process(ctx, ev)
}

// Process handles one verified event exactly once. Redeliveries of an event
// that already finished are acknowledged without side effects.
func (s *webhookService) Process(ctx context.Context, ev *stripeclient.Event) (*WebhookResult, error) {
	res := &WebhookResult{EventID: ev.ID, Type: ev.Type}
	s.metrics.TrackWebhookReceived(ev.Type)

	if _, hit := s.seen.Get(ev.ID); hit {
		s.metrics.TrackDuplicate("webhook")
		res.Duplicate = true
		res.Status = types.WebhookStatusProcessed
		return res, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	piID := ""
	if ev.Intent != nil {
		piID = ev.Intent.ID
	}
	inserted, err := s.events.Record(dbc, &types.WebhookEvent{
		ID:              ev.ID,
		Provider:        providerStripe,
		Type:            ev.Type,
		PaymentIntentID: piID,
	})
	if err != nil {
		return nil, s.failed(ev, fmt.Errorf("record webhook event: %w", err), "record")
	}
	if !inserted {
		prev, err := s.events.Get(dbc, ev.ID)
		if err != nil {
			return nil, s.failed(ev, fmt.Errorf("load webhook event: %w", err), "record")
		}
		if prev != nil && prev.Done() {
			s.remember(ev.ID)
			s.metrics.TrackDuplicate("webhook")
			res.Duplicate = true
			res.Status = prev.Status
			return res, nil
		}
		s.log.Info("Retrying unfinished webhook event", "event_id", ev.ID, "type", ev.Type)
	}

	status := types.WebhookStatusProcessed
	switch ev.Type {
	case EventPaymentSucceeded:
		reg, err := s.handleSucceeded(ctx, ev)
		if err != nil {
			s.markFailed(dbc, ev.ID, err)
			return nil, s.failed(ev, err, "payment_succeeded")
		}
		res.RegistrationID = reg.ID.String()
	case EventPaymentFailed:
		if err := s.handleFailed(ctx, ev); err != nil {
			s.markFailed(dbc, ev.ID, err)
			return nil, s.failed(ev, err, "payment_failed")
		}
	default:
		status = types.WebhookStatusIgnored
	}

	if err := s.events.MarkDone(dbc, ev.ID, status, piID); err != nil {
		s.log.Warn("Failed to mark webhook event done", "event_id", ev.ID, "error", err)
	} else {
		s.remember(ev.ID)
	}
	s.metrics.TrackWebhookSuccess(ev.Type)
	res.Status = status
	return res, nil
}

func (s *webhookService) handleSucceeded(ctx context.Context, ev *stripeclient.Event) (*types.Registration, error) {
	intent := ev.Intent
	if intent == nil || intent.ID == "" {
		return nil, fmt.Errorf("event %s carries no payment intent", ev.ID)
	}
	details := DetailsFromMetadata(intent.Metadata)
	if p, ok := s.catalog.GetEventPricing(details.EventID); ok && details.EventName == "" {
		details.EventName = p.Name
	}

	expected, err := s.catalog.CalculateRegistrationAmount(details.PricingRequest())
	if err == nil && expected != intent.Amount {
		err = fmt.Errorf("charged %d, catalog price %d", intent.Amount, expected)
	}
	if err != nil {
		observability.LogCriticalFailure(s.log, s.metrics, observability.FailurePayment, err, map[string]any{
			"reason":            "amount_mismatch",
			"payment_intent_id": intent.ID,
			"event_id":          details.EventID,
			"option":            details.Option,
			"expected":          expected,
			"charged":           intent.Amount,
		})
	}

	reg := details.toRegistration(intent.ID, intent.Amount, intent.Currency)
	paidAt := ev.Created
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	reg.PaymentStatus = types.PaymentStatusPaid
	reg.PaidAt = &paidAt

	var saved *types.Registration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		saved, err = s.regs.UpsertByPaymentIntent(txc, reg)
		if err != nil {
			return fmt.Errorf("upsert registration: %w", err)
		}
		if saved.OrderStatus == types.OrderStatusCreated {
			return nil
		}
		if _, err := s.regs.MarkOrderPending(txc, saved.ID); err != nil {
			return fmt.Errorf("mark order pending: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Registration paid", "registration_id", saved.ID, "payment_intent_id", intent.ID, "event_id", saved.EventID)

	if saved.OrderStatus != types.OrderStatusCreated && s.dispatcher != nil {
		s.dispatchOrder(ctx, saved.ID, intent.ID)
	}
	return saved, nil
}

// dispatchOrder never fails the webhook; the registration row keeps the order state.
func (s *webhookService) dispatchOrder(ctx context.Context, registrationID uuid.UUID, paymentIntentID string) {
	if err := s.dispatcher.Dispatch(ctx, registrationID); err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Status == http.StatusConflict {
			s.log.Debug("Order already handled", "registration_id", registrationID, "code", ae.Code)
			return
		}
		s.log.Warn("Order dispatch failed; left for reconcile", "registration_id", registrationID, "payment_intent_id", paymentIntentID, "error", err)
	}
}

func (s *webhookService) handleFailed(ctx context.Context, ev *stripeclient.Event) error {
	intent := ev.Intent
	if intent == nil || intent.ID == "" {
		return fmt.Errorf("event %s carries no payment intent", ev.ID)
	}
	if _, err := s.regs.MarkPaymentFailed(dbctx.Context{Ctx: ctx}, intent.ID); err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	s.metrics.TrackPaymentIntent("payment_failed")
	details := DetailsFromMetadata(intent.Metadata)
	if details.SessionID != "" && s.locks != nil {
		if err := s.locks.MarkFailed(ctx, details.SessionID); err != nil {
			s.log.Warn("Failed to mark payment lock failed", "session_id", details.SessionID, "error", err)
		}
		if err := s.locks.ReleaseLock(ctx, details.SessionID); err != nil {
			s.log.Warn("Failed to release payment lock", "session_id", details.SessionID, "error", err)
		}
	}
	s.log.Info("Payment failed", "payment_intent_id", intent.ID, "reason", intent.LastError)
	return nil
}

func (s *webhookService) remember(eventID string) {
	s.seen.SetWithTTL(eventID, true, 1, inboxCacheTTL)
	s.seen.Wait()
}

func (s *webhookService) markFailed(dbc dbctx.Context, eventID string, cause error) {
	if err := s.events.MarkFailed(dbc, eventID, cause.Error()); err != nil {
		s.log.Error("Failed to mark webhook event failed", "event_id", eventID, "error", err)
	}
}

// failed reports a processing error; the 500 makes the processor redeliver.
func (s *webhookService) failed(ev *stripeclient.Event, err error, stage string) error {
	s.metrics.TrackWebhookFailure(ev.Type)
	ctx := map[string]any{"event_id": ev.ID, "event_type": ev.Type, "stage": stage}
	if ev.Intent != nil {
		ctx["payment_intent_id"] = ev.Intent.ID
	}
	observability.LogCriticalFailure(s.log, s.metrics, observability.FailureWebhook, err, ctx)
	return apierr.New(http.StatusInternalServerError, "webhook_processing_failed", err)
}
