package stripeclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Header
}

const succeededPayload = `{
  "id": "evt_123",
  "object": "event",
  "type": "payment_intent.succeeded",
  "created": 1780000000,
  "data": {
    "object": {
      "id": "pi_123",
      "object": "payment_intent",
      "amount": 11900,
      "currency": "usd",
      "status": "succeeded",
      "metadata": {"eventId": "2", "option": "1day", "selectedDates": "June 5"}
    }
  }
}`

func TestParseWebhookDecodesIntent(t *testing.T) {
	ev, err := ParseWebhook([]byte(succeededPayload), signed(t, succeededPayload), testSecret, time.Minute)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.ID != "evt_123" || ev.Type != "payment_intent.succeeded" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Intent == nil || ev.Intent.ID != "pi_123" || ev.Intent.Amount != 11900 {
		t.Fatalf("unexpected intent: %+v", ev.Intent)
	}
	if ev.Intent.Metadata["option"] != "1day" {
		t.Fatalf("metadata not decoded: %v", ev.Intent.Metadata)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	header := signed(t, succeededPayload)
	tampered := []byte(succeededPayload[:len(succeededPayload)-1] + " }")
	if _, err := ParseWebhook(tampered, header, testSecret, time.Minute); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
	if _, err := ParseWebhook([]byte(succeededPayload), "", testSecret, time.Minute); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("missing header: want ErrInvalidSignature, got %v", err)
	}
}

func TestParseWebhookRequiresSecret(t *testing.T) {
	if _, err := ParseWebhook([]byte(succeededPayload), "t=1,v1=x", "", time.Minute); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestParseWebhookOtherEventsHaveNoIntent(t *testing.T) {
	payload := `{"id":"evt_9","object":"event","type":"charge.refunded","created":1780000000,"data":{"object":{"id":"ch_1","object":"charge"}}}`
	ev, err := ParseWebhook([]byte(payload), signed(t, payload), testSecret, time.Minute)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Intent != nil {
		t.Fatalf("charge event should carry no intent")
	}
}
