package stripeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/yungbote/matside-backend/internal/platform/envutil"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

var (
	ErrInvalidSignature = errors.New("stripe: invalid webhook signature")
	ErrNotConfigured    = errors.New("stripe: not configured")
)

type Client interface {
	CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

type Config struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		SecretKey:        envutil.String("STRIPE_SECRET_KEY", ""),
		WebhookSecret:    envutil.String("STRIPE_WEBHOOK_SECRET", ""),
		WebhookTolerance: envutil.Duration("STRIPE_WEBHOOK_TOLERANCE", webhook.DefaultTolerance),
	}
}

type IntentParams struct {
	Amount         int64
	Currency       string
	ReceiptEmail   string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
	Created      time.Time
	LastError    string
}

type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Intent is set for payment_intent.* events.
	Intent *Intent
}

type apiClient struct {
	log *logger.Logger
	cfg Config
	sc  *client.API
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("missing STRIPE_SECRET_KEY")
	}
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = webhook.DefaultTolerance
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &apiClient{
		log: log.With("client", "StripeClient"),
		cfg: cfg,
		sc:  sc,
	}, nil
}

func (c *apiClient) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("stripe: amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	pi, err := c.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return fromPaymentIntent(pi), nil
}

func (c *apiClient) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent %s: %w", id, err)
	}
	return fromPaymentIntent(pi), nil
}

func (c *apiClient) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return ParseWebhook(payload, signature, c.cfg.WebhookSecret, c.cfg.WebhookTolerance)
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func ParseWebhook(payload []byte, signature, secret string, tolerance time.Duration) (*Event, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := &Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0),
	}
	if strings.HasPrefix(out.Type, "payment_intent.") && ev.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
		}
		out.Intent = fromPaymentIntent(&pi)
	}
	return out, nil
}

func fromPaymentIntent(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	out := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
	}
	if pi.Created > 0 {
		out.Created = time.Unix(pi.Created, 0)
	}
	if pi.LastPaymentError != nil {
		out.LastError = pi.LastPaymentError.Msg
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}
