package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/data/repos"
	"github.com/yungbote/matside-backend/internal/data/repos/testutil"
	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/paymentlock"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/shopify"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/pricing"
)

const testWebhookSecret = "whsec_services_test"

type fakeStripe struct {
	mu        sync.Mutex
	created   []stripeclient.IntentParams
	intents   map[string]*stripeclient.Intent
	createErr error
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{intents: map[string]*stripeclient.Intent{}}
}

func (f *fakeStripe) CreatePaymentIntent(ctx context.Context, p stripeclient.IntentParams) (*stripeclient.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	id := fmt.Sprintf("pi_test_%d", len(f.created))
	in := &stripeclient.Intent{
		ID:           id,
		ClientSecret: id + "_secret_abc",
		Status:       "requires_payment_method",
		Amount:       p.Amount,
		Currency:     p.Currency,
		Metadata:     p.Metadata,
	}
	f.intents[id] = in
	return in, nil
}

func (f *fakeStripe) GetPaymentIntent(ctx context.Context, id string) (*stripeclient.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	return in, nil
}

func (f *fakeStripe) ParseWebhook(payload []byte, signature string) (*stripeclient.Event, error) {
	return stripeclient.ParseWebhook(payload, signature, testWebhookSecret, time.Minute)
}

func (f *fakeStripe) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeShop struct {
	mu     sync.Mutex
	calls  int
	orders []shopify.OrderRequest
	err    error
}

func (f *fakeShop) CreateOrder(ctx context.Context, req shopify.OrderRequest) (*shopify.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, req)
	return &shopify.Order{
		ID:        fmt.Sprintf("%d", 1000+len(f.orders)),
		Name:      fmt.Sprintf("#%d", 1000+len(f.orders)),
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeShop) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeShop) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type harness struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	locks    *paymentlock.Locker
	stripe   *fakeStripe
	shop     *fakeShop
	metrics  *observability.Metrics
	payments PaymentService
	orders   OrderSyncService
	webhooks WebhookService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:      testutil.DB(t),
		log:     testutil.Logger(t),
		stripe:  newFakeStripe(),
		shop:    &fakeShop{},
		metrics: observability.New(prometheus.NewRegistry()),
	}
	h.repos = repos.New(h.db, h.log)

	store := idempotency.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	h.locks = paymentlock.New(store, h.log)

	h.payments = NewPaymentService(h.log, h.repos.Registrations, h.locks, h.stripe, pricing.Default(), h.metrics, "usd")
	h.orders = NewOrderSyncService(h.log, h.repos.Registrations, h.shop, nil, h.metrics)
	h.webhooks = h.newWebhookService(t)
	return h
}

// newWebhookService returns a service with an empty inbox cache over the same database.
func (h *harness) newWebhookService(t *testing.T) WebhookService {
	t.Helper()
	svc, err := NewWebhookService(h.db, h.log, h.repos.Registrations, h.repos.WebhookEvents, h.locks, h.stripe, pricing.Default(), NewInlineDispatcher(h.orders), h.metrics)
	if err != nil {
		t.Fatalf("new webhook service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func signPayload(t *testing.T, payload string) string {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func succeededEvent(eventID, piID, sessionID string, amount int64) *stripeclient.Event {
	return &stripeclient.Event{
		ID:      eventID,
		Type:    EventPaymentSucceeded,
		Created: time.Now(),
		Intent: &stripeclient.Intent{
			ID:       piID,
			Status:   "succeeded",
			Amount:   amount,
			Currency: "usd",
			Metadata: map[string]string{
				"sessionId":     sessionID,
				"eventId":       "2",
				"option":        "1day",
				"numberOfDays":  "1",
				"selectedDates": "June 5",
				"firstName":     "Dan",
				"lastName":      "Gable",
				"email":         "dan@example.com",
				"school":        "Waterloo West",
			},
		},
	}
}
