package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/redisx"
	"github.com/yungbote/matside-backend/internal/platform/sendgrid"
	"github.com/yungbote/matside-backend/internal/platform/shopify"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/temporalx"
)

// Clients holds external integrations. Unconfigured ones stay nil and the
// services that need them report a not-configured error instead.
type Clients struct {
	Redis    *redis.Client
	Stripe   stripeclient.Client
	Shopify  shopify.Client
	SendGrid sendgrid.Client
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redisx.Open(ctx, log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb

	if cfg.Stripe.SecretKey != "" {
		sc, err := stripeclient.New(log, cfg.Stripe)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init stripe: %w", err)
		}
		out.Stripe = sc
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; payment intents disabled")
	}

	if cfg.Shopify.Configured() {
		shop, err := shopify.New(log, cfg.Shopify)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init shopify: %w", err)
		}
		out.Shopify = shop
	} else {
		log.Warn("Shopify not configured; paid registrations will be held for order reconciliation")
	}

	if cfg.SendGrid.APIKey != "" {
		mail, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init sendgrid: %w", err)
		}
		out.SendGrid = mail
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc

	return out, nil
}

func (c Clients) Close() {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
