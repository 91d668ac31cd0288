package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/matside-backend/internal/data/repos/testutil"
	types "github.com/yungbote/matside-backend/internal/domain"
	httpH "github.com/yungbote/matside-backend/internal/http/handlers"
	httpMW "github.com/yungbote/matside-backend/internal/http/middleware"
	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/paymentlock"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/pricing"
	"github.com/yungbote/matside-backend/internal/services"
)

const adminSecret = "router-admin-secret"

type fakePayments struct {
	calls int
	last  services.RegistrationDetails
	err   error
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, in services.RegistrationDetails) (*services.PaymentIntentResult, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &services.PaymentIntentResult{PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret", Amount: 24900, Currency: "usd"}, nil
}

func (f *fakePayments) LockStatus(ctx context.Context, sessionID string) (paymentlock.Lock, error) {
	return paymentlock.Lock{SessionID: sessionID, Status: paymentlock.StatusCompleted, PaymentIntentID: "pi_1"}, nil
}

type fakeWebhooks struct {
	payload   string
	signature string
	err       error
}

func (f *fakeWebhooks) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*services.WebhookResult, error) {
	f.payload, f.signature = string(payload), signature
	if f.err != nil {
		return nil, f.err
	}
	return &services.WebhookResult{EventID: "evt_1", Type: services.EventPaymentSucceeded, Status: "processed"}, nil
}

func (f *fakeWebhooks) Process(ctx context.Context, ev *stripeclient.Event) (*services.WebhookResult, error) {
	return nil, nil
}

func (f *fakeWebhooks) Close() {}

type fakeOrders struct {
	synced []uuid.UUID
	limit  int
	err    error
}

func (f *fakeOrders) Sync(ctx context.Context, id uuid.UUID) (*services.OrderSyncResult, error) {
	f.synced = append(f.synced, id)
	if f.err != nil {
		return nil, f.err
	}
	return &services.OrderSyncResult{RegistrationID: id, OrderStatus: types.OrderStatusCreated, OrderName: "#1001"}, nil
}

func (f *fakeOrders) ReconcileFailed(ctx context.Context, limit int) (*services.ReconcileReport, error) {
	f.limit = limit
	return &services.ReconcileReport{Scanned: 2, Dispatched: 2}, nil
}

type fakeRegistrations struct{}

func (fakeRegistrations) Get(ctx context.Context, id uuid.UUID) (*types.Registration, error) {
	return nil, services.ErrRegistrationNotFound
}

type rig struct {
	router   *gin.Engine
	payments *fakePayments
	webhooks *fakeWebhooks
	orders   *fakeOrders
}

func newRig(t *testing.T, withAdmin bool) *rig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	store := idempotency.NewMemory()
	t.Cleanup(func() { _ = store.Close() })

	r := &rig{payments: &fakePayments{}, webhooks: &fakeWebhooks{}, orders: &fakeOrders{}}
	cfg := RouterConfig{
		Log:            log,
		PaymentDedup:   httpMW.NewPaymentDedup(log, store, nil),
		HealthHandler:  httpH.NewHealthHandler(testutil.DB(t), nil),
		PaymentHandler: httpH.NewPaymentHandler(log, r.payments),
		WebhookHandler: httpH.NewWebhookHandler(log, r.webhooks),
		PricingHandler: httpH.NewPricingHandler(pricing.Default()),
		AdminHandler:   httpH.NewAdminHandler(log, fakeRegistrations{}, r.orders),
	}
	if withAdmin {
		cfg.AdminAuth = httpMW.NewAdminAuth(log, adminSecret)
	}
	r.router = NewRouter(cfg)
	return r
}

func (r *rig) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func adminHeader(t *testing.T) map[string]string {
	t.Helper()
	tok, err := httpMW.SignAdminToken(adminSecret, httpMW.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

const intentBody = `{"sessionId":"sess-1","eventId":1,"option":"full","firstName":"Dan","lastName":"Gable","email":"dan@example.com"}`

func TestCreatePaymentIntentRoute(t *testing.T) {
	r := newRig(t, false)

	rec := r.do(http.MethodPost, "/api/create-payment-intent", intentBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out services.PaymentIntentResult
	decode(t, rec, &out)
	assert.Equal(t, "pi_1_secret", out.ClientSecret)
	assert.Equal(t, int64(24900), out.Amount)
	assert.Equal(t, "sess-1", r.payments.last.SessionID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestCreatePaymentIntentDedupBeforeHandler(t *testing.T) {
	r := newRig(t, false)

	require.Equal(t, http.StatusOK, r.do(http.MethodPost, "/api/create-payment-intent", intentBody, nil).Code)
	rec := r.do(http.MethodPost, "/api/create-payment-intent", intentBody, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, r.payments.calls)
}

func TestCreatePaymentIntentMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", services.ErrDuplicatePayment, http.StatusTooManyRequests, "duplicate_request"},
		{"provider", services.ErrPaymentProvider, http.StatusBadGateway, "payment_provider_error"},
		{"missing session", services.ErrMissingSession, http.StatusBadRequest, "missing_session"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t, false)
			r.payments.err = tc.err
			rec := r.do(http.MethodPost, "/api/create-payment-intent", intentBody, nil)
			require.Equal(t, tc.status, rec.Code)
			var body response.ErrorBody
			decode(t, rec, &body)
			assert.Equal(t, tc.code, body.Error)
			assert.NotEmpty(t, body.UserFriendlyMessage)
		})
	}
}

func TestCreatePaymentIntentSessionHeader(t *testing.T) {
	r := newRig(t, false)
	body := `{"eventId":1,"option":"full","firstName":"Dan","lastName":"Gable","email":"dan@example.com"}`
	rec := r.do(http.MethodPost, "/api/create-payment-intent", body, map[string]string{"X-Session-Id": "sess-hdr"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-hdr", r.payments.last.SessionID)
}

func TestCreatePaymentIntentRejectsMalformedBody(t *testing.T) {
	r := newRig(t, false)
	rec := r.do(http.MethodPost, "/api/create-payment-intent", `{"eventId":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, r.payments.calls)
}

func TestLockStatusRoute(t *testing.T) {
	r := newRig(t, false)
	rec := r.do(http.MethodGet, "/api/payments/lock/sess-9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lk paymentlock.Lock
	decode(t, rec, &lk)
	assert.Equal(t, "sess-9", lk.SessionID)
	assert.Equal(t, paymentlock.StatusCompleted, lk.Status)
}

func TestStripeWebhookRoute(t *testing.T) {
	r := newRig(t, false)
	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`

	rec := r.do(http.MethodPost, "/api/stripe-webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, r.webhooks.payload)
	assert.Equal(t, "t=1,v1=abc", r.webhooks.signature)

	var out map[string]any
	decode(t, rec, &out)
	assert.Equal(t, true, out["received"])
	assert.Equal(t, "evt_1", out["eventId"])
}

func TestStripeWebhookBadSignature(t *testing.T) {
	r := newRig(t, false)
	r.webhooks.err = services.ErrWebhookSignature
	rec := r.do(http.MethodPost, "/api/stripe-webhook", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body response.ErrorBody
	decode(t, rec, &body)
	assert.Equal(t, "invalid_signature", body.Error)
}

func TestPricingRoutes(t *testing.T) {
	r := newRig(t, false)

	rec := r.do(http.MethodGet, "/api/events/2/pricing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p pricing.EventPricing
	decode(t, rec, &p)
	assert.Equal(t, int64(11900), p.OneDay)
	assert.Equal(t, int64(19900), p.TwoDay)

	assert.Equal(t, http.StatusNotFound, r.do(http.MethodGet, "/api/events/999/pricing", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, r.do(http.MethodGet, "/api/events/abc/pricing", "", nil).Code)
	assert.Equal(t, http.StatusOK, r.do(http.MethodGet, "/api/events", "", nil).Code)
}

func TestValidateRoute(t *testing.T) {
	r := newRig(t, false)

	rec := r.do(http.MethodPost, "/api/registrations/validate", `{"eventId":2,"option":"1day","numberOfDays":1,"selectedDates":["June 5"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var q pricing.Quote
	decode(t, rec, &q)
	assert.True(t, q.Valid)
	assert.Equal(t, int64(11900), q.Amount)

	rec = r.do(http.MethodPost, "/api/registrations/validate", `{"eventId":2,"option":"2day","numberOfDays":2,"selectedDates":["June 5","June 8"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &q)
	assert.False(t, q.Valid)
	assert.NotEmpty(t, q.Errors)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newRig(t, true)
	id := uuid.New()

	rec := r.do(http.MethodPost, "/api/admin/registrations/"+id.String()+"/retry-order", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, r.orders.synced)

	rec = r.do(http.MethodPost, "/api/admin/registrations/"+id.String()+"/retry-order", "", adminHeader(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{id}, r.orders.synced)
}

func TestAdminReconcileLimit(t *testing.T) {
	r := newRig(t, true)

	require.Equal(t, http.StatusOK, r.do(http.MethodPost, "/api/admin/orders/reconcile?limit=5000", "", adminHeader(t)).Code)
	assert.Equal(t, 500, r.orders.limit)
	require.Equal(t, http.StatusOK, r.do(http.MethodPost, "/api/admin/orders/reconcile", "", adminHeader(t)).Code)
	assert.Equal(t, 50, r.orders.limit)
	assert.Equal(t, http.StatusBadRequest, r.do(http.MethodPost, "/api/admin/orders/reconcile?limit=abc", "", adminHeader(t)).Code)
}

func TestAdminGetRegistrationNotFound(t *testing.T) {
	r := newRig(t, true)
	rec := r.do(http.MethodGet, "/api/admin/registrations/"+uuid.NewString(), "", adminHeader(t))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusBadRequest, r.do(http.MethodGet, "/api/admin/registrations/nope", "", adminHeader(t)).Code)
}

func TestAdminRoutesAbsentWithoutSecret(t *testing.T) {
	r := newRig(t, false)
	rec := r.do(http.MethodPost, "/api/admin/orders/reconcile", "", adminHeader(t))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthRoutes(t *testing.T) {
	r := newRig(t, false)

	rec := r.do(http.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = r.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "ok", out.Status)
	assert.Contains(t, out.Checks, "database")
	assert.Contains(t, out.Checks, "redis")
}

func TestHealthDownWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{Log: logger.Nop(), HealthHandler: httpH.NewHealthHandler(nil, nil)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
