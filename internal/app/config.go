package app

import (
	"github.com/yungbote/matside-backend/internal/data/db"
	"github.com/yungbote/matside-backend/internal/platform/envutil"
	"github.com/yungbote/matside-backend/internal/platform/redisx"
	"github.com/yungbote/matside-backend/internal/platform/sendgrid"
	"github.com/yungbote/matside-backend/internal/platform/shopify"
	"github.com/yungbote/matside-backend/internal/platform/stripeclient"
	"github.com/yungbote/matside-backend/internal/temporalx"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	DB    db.Config
	Redis redisx.Config
	// IdempotencyBackend is "memory", "redis", or empty to pick redis when REDIS_ADDR is set.
	IdempotencyBackend string

	Stripe   stripeclient.Config
	Currency string
	Shopify  shopify.Config
	SendGrid sendgrid.Config
	Temporal temporalx.Config

	AdminJWTSecret     string
	MetricsEnabled     bool
	TracingEnabled     bool
	CORSAllowedOrigins []string
	PricingCatalogPath string
	AutoMigrate        bool
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		DB:                 db.ConfigFromEnv(),
		Redis:              redisx.ConfigFromEnv(),
		IdempotencyBackend: envutil.String("IDEMPOTENCY_BACKEND", ""),

		Stripe:   stripeclient.ConfigFromEnv(),
		Currency: envutil.String("STRIPE_CURRENCY", "usd"),
		Shopify:  shopify.ConfigFromEnv(),
		SendGrid: sendgrid.ConfigFromEnv(),
		Temporal: temporalx.LoadConfig(),

		AdminJWTSecret:     envutil.String("ADMIN_JWT_SECRET", ""),
		MetricsEnabled:     envutil.Bool("METRICS_ENABLED", false),
		TracingEnabled:     envutil.Bool("OTEL_ENABLED", false),
		CORSAllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		PricingCatalogPath: envutil.String("PRICING_CATALOG_PATH", ""),
		AutoMigrate:        envutil.Bool("DB_AUTO_MIGRATE", true),
	}
}
