package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{BaseURL: srv.URL, AccessToken: "shpat_test", APIVersion: "2024-01", MaxRetries: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cl := c.(*client)
	cl.retry.Base = time.Millisecond
	return cl
}

func TestCreateOrder(t *testing.T) {
	var got createOrderRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2024-01/orders.json" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Shopify-Access-Token") != "shpat_test" {
			t.Errorf("missing access token header")
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"id":450789469,"name":"#1001","created_at":"2026-06-01T10:00:00-05:00"}}`))
	})

	order, err := c.CreateOrder(context.Background(), OrderRequest{
		Email:    "dan@example.com",
		Currency: "usd",
		Customer: Customer{FirstName: "Dan", LastName: "Gable", Email: "dan@example.com"},
		LineItems: []LineItem{{
			Title:      "National Champ Camp - 1 Day",
			PriceCents: 11900,
			Properties: map[string]string{"Dates": "June 5", "Empty": " "},
		}},
		NoteAttributes: map[string]string{"payment_intent_id": "pi_1"},
		Tags:           []string{"registration", "event-2"},
		TransactionRef: "pi_1",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "450789469" || order.Name != "#1001" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if got.Order.FinancialStatus != "paid" || got.Order.Currency != "USD" || got.Order.Tags != "registration, event-2" {
		t.Fatalf("unexpected wire order: %+v", got.Order)
	}
	if len(got.Order.LineItems) != 1 || got.Order.LineItems[0].Price != "119.00" || got.Order.LineItems[0].Quantity != 1 {
		t.Fatalf("unexpected line items: %+v", got.Order.LineItems)
	}
	if len(got.Order.LineItems[0].Properties) != 1 {
		t.Fatalf("blank properties should be dropped: %+v", got.Order.LineItems[0].Properties)
	}
	if len(got.Order.Transactions) != 1 || got.Order.Transactions[0].Amount != "119.00" || got.Order.Transactions[0].Authorization != "pi_1" {
		t.Fatalf("unexpected transactions: %+v", got.Order.Transactions)
	}
}

func TestCreateOrderRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"order":{"id":1,"name":"#1"}}`))
	})
	if _, err := c.CreateOrder(context.Background(), OrderRequest{LineItems: []LineItem{{Title: "x", PriceCents: 100}}}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 calls, got %d", calls)
	}
}

func TestCreateOrderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"line_items":["is invalid"]}}`))
	})
	_, err := c.CreateOrder(context.Background(), OrderRequest{LineItems: []LineItem{{Title: "x", PriceCents: 100}}})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 HTTPError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("422 must not be retried, got %d calls", calls)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 11900: "119.00", 7550: "75.50", -250: "-2.50"}
	for cents, want := range cases {
		if got := FormatPrice(cents); got != want {
			t.Fatalf("FormatPrice(%d): want=%q got=%q", cents, want, got)
		}
	}
}
