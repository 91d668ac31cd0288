package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/matside-backend/internal/data/repos"
	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/shopify"
)

const (
	// DefaultClaimTimeout is how long a "creating" claim blocks other syncs.
	DefaultClaimTimeout = 5 * time.Minute
	// DefaultPendingAfter is how long a dispatched order may stay unfinished before reconcile picks it up.
	DefaultPendingAfter = 15 * time.Minute
)

type OrderSyncResult struct {
	RegistrationID uuid.UUID `json:"registrationId"`
	OrderStatus    string    `json:"orderStatus"`
	OrderID        string    `json:"orderId,omitempty"`
	OrderName      string    `json:"orderName,omitempty"`
	Skipped        bool      `json:"skipped"`
}

type ReconcileReport struct {
	Scanned    int      `json:"scanned"`
	Dispatched int      `json:"dispatched"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

type OrderSyncService interface {
	// Sync creates the retail order for a paid registration at most once.
	Sync(ctx context.Context, registrationID uuid.UUID) (*OrderSyncResult, error)
	// ReconcileFailed re-dispatches paid registrations whose order failed or stalled.
	ReconcileFailed(ctx context.Context, limit int) (*ReconcileReport, error)
}

type OrderSyncOption func(*orderSyncService)

// WithDispatcher routes reconcile through d instead of syncing inline.
func WithDispatcher(d OrderDispatcher) OrderSyncOption {
	return func(s *orderSyncService) { s.dispatcher = d }
}

func WithOrderClock(now func() time.Time) OrderSyncOption {
	return func(s *orderSyncService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithClaimTimeout(d time.Duration) OrderSyncOption {
	return func(s *orderSyncService) {
		if d > 0 {
			s.claimTimeout = d
		}
	}
}

type orderSyncService struct {
	log          *logger.Logger
	regs         repos.RegistrationRepo
	shop         shopify.Client
	notify       RegistrationNotifier
	metrics      *observability.Metrics
	dispatcher   OrderDispatcher
	now          func() time.Time
	claimTimeout time.Duration
	pendingAfter time.Duration
}

func NewOrderSyncService(
	log *logger.Logger,
	regs repos.RegistrationRepo,
	shop shopify.Client,
	notify RegistrationNotifier,
	metrics *observability.Metrics,
	opts ...OrderSyncOption,
) OrderSyncService {
	s := &orderSyncService{
		log:          log.With("service", "OrderSyncService"),
		regs:         regs,
		shop:         shop,
		notify:       notify,
		metrics:      metrics,
		now:          time.Now,
		claimTimeout: DefaultClaimTimeout,
		pendingAfter: DefaultPendingAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderSyncService) Sync(ctx context.Context, registrationID uuid.UUID) (*OrderSyncResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	reg, err := s.regs.GetByID(dbc, registrationID)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	if reg.OrderStatus == types.OrderStatusCreated {
		return resultFor(reg, true), nil
	}
	if reg.PaymentStatus != types.PaymentStatusPaid {
		return nil, ErrNotPaid
	}

	claimed, err := s.regs.ClaimOrderSync(dbc, reg.ID, s.now().Add(-s.claimTimeout))
	if err != nil {
		return nil, fmt.Errorf("claim order sync: %w", err)
	}
	if !claimed {
		cur, err := s.regs.GetByID(dbc, reg.ID)
		if err == nil && cur != nil && cur.OrderStatus == types.OrderStatusCreated {
			return resultFor(cur, true), nil
		}
		return nil, ErrOrderInProgress
	}
	attempt := reg.OrderAttempts + 1

	if s.shop == nil {
		s.fail(dbc, reg, attempt, ErrOrdersNotConfigured)
		return nil, ErrOrdersNotConfigured
	}

	ctx, span := observability.StartSpan(ctx, "order_sync.create_order")
	order, err := s.shop.CreateOrder(ctx, buildOrderRequest(reg))
	span.End()
	if err != nil {
		s.fail(dbc, reg, attempt, err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	if err := s.regs.MarkOrderCreated(dbc, reg.ID, order.ID, order.Name, createdAt); err != nil {
		// The order exists upstream; only the bookkeeping failed.
		observability.LogCriticalFailure(s.log, s.metrics, observability.FailureShopify, err, map[string]any{
			"stage":             "record_order",
			"registration_id":   reg.ID.String(),
			"payment_intent_id": reg.PaymentIntentID,
			"shopify_order_id":  order.ID,
		})
		return nil, fmt.Errorf("record order: %w", err)
	}
	s.metrics.TrackOrderCreated()
	s.log.Info("Order created", "registration_id", reg.ID, "payment_intent_id", reg.PaymentIntentID, "shopify_order_id", order.ID, "attempt", attempt)

	reg.OrderStatus = types.OrderStatusCreated
	reg.ShopifyOrderID = order.ID
	reg.ShopifyOrderName = order.Name
	if s.notify != nil {
		if err := s.notify.RegistrationConfirmed(ctx, reg, order); err != nil {
			s.log.Warn("Failed to send registration confirmation", "registration_id", reg.ID, "error", err)
		}
	}
	return resultFor(reg, false), nil
}

func (s *orderSyncService) fail(dbc dbctx.Context, reg *types.Registration, attempt int, cause error) {
	if err := s.regs.MarkOrderFailed(dbc, reg.ID, cause.Error()); err != nil {
		s.log.Error("Failed to record order failure", "registration_id", reg.ID, "error", err)
	}
	s.metrics.TrackOrderFailed(failureReason(cause))
	observability.LogCriticalFailure(s.log, s.metrics, observability.FailureShopify, cause, map[string]any{
		"registration_id":   reg.ID.String(),
		"payment_intent_id": reg.PaymentIntentID,
		"event_id":          reg.EventID,
		"attempt":           attempt,
	})
}

func (s *orderSyncService) ReconcileFailed(ctx context.Context, limit int) (*ReconcileReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	list, err := s.regs.ListNeedingOrder(dbc, s.now().Add(-s.pendingAfter), limit)
	if err != nil {
		return nil, fmt.Errorf("list registrations needing order: %w", err)
	}
	report := &ReconcileReport{Scanned: len(list)}
	for _, reg := range list {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := s.regs.MarkOrderPending(dbc, reg.ID); err != nil {
			s.log.Warn("Failed to mark order pending", "registration_id", reg.ID, "error", err)
		}
		if err := s.dispatch(ctx, reg.ID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", reg.ID, err))
			continue
		}
		report.Dispatched++
	}
	s.log.Info("Order reconcile finished", "scanned", report.Scanned, "dispatched", report.Dispatched, "failed", report.Failed)
	return report, nil
}

func (s *orderSyncService) dispatch(ctx context.Context, id uuid.UUID) error {
	if s.dispatcher != nil {
		return s.dispatcher.Dispatch(ctx, id)
	}
	_, err := s.Sync(ctx, id)
	return err
}

func resultFor(reg *types.Registration, skipped bool) *OrderSyncResult {
	return &OrderSyncResult{
		RegistrationID: reg.ID,
		OrderStatus:    reg.OrderStatus,
		OrderID:        reg.ShopifyOrderID,
		OrderName:      reg.ShopifyOrderName,
		Skipped:        skipped,
	}
}

func failureReason(err error) string {
	var he *shopify.HTTPError
	switch {
	case errors.As(err, &he):
		return fmt.Sprintf("http_%d", he.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrOrdersNotConfigured):
		return "not_configured"
	default:
		return "error"
	}
}

func buildOrderRequest(reg *types.Registration) shopify.OrderRequest {
	title := eventTitle(reg)
	switch reg.Option {
	case "1day":
		title += " - 1 Day"
	case "2day":
		title += " - 2 Days"
	case "single":
		title += " - Single"
	default:
		title += " - Full Camp"
	}
	props := map[string]string{
		"Registrant":   reg.FullName(),
		"School":       reg.School,
		"Grade":        reg.Grade,
		"Weight Class": reg.WeightClass,
		"Parent":       reg.ParentName,
		"Parent Phone": reg.ParentPhone,
	}
	if dates := selectedDates(reg); len(dates) > 0 {
		props["Dates"] = strings.Join(dates, ", ")
	}
	return shopify.OrderRequest{
		Email:    reg.Email,
		Currency: reg.Currency,
		Customer: shopify.Customer{
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Email:     reg.Email,
			Phone:     reg.Phone,
		},
		LineItems: []shopify.LineItem{{
			Title:      title,
			PriceCents: reg.Amount,
			Quantity:   1,
			SKU:        fmt.Sprintf("EVENT-%d-%s", reg.EventID, strings.ToUpper(reg.Option)),
			Properties: props,
		}},
		NoteAttributes: map[string]string{
			"registration_id":   reg.ID.String(),
			"payment_intent_id": reg.PaymentIntentID,
			"session_id":        reg.SessionID,
		},
		Tags:           []string{"registration", fmt.Sprintf("event-%d", reg.EventID), reg.Option},
		TransactionRef: reg.PaymentIntentID,
	}
}
