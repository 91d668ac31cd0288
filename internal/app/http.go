package app

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	apphttp "github.com/yungbote/matside-backend/internal/http"
	httpH "github.com/yungbote/matside-backend/internal/http/handlers"
	httpMW "github.com/yungbote/matside-backend/internal/http/middleware"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/pricing"
)

type Middleware struct {
	PaymentDedup *httpMW.PaymentDedup
	// AdminAuth is nil when ADMIN_JWT_SECRET is unset, which leaves admin routes unregistered.
	AdminAuth *httpMW.AdminAuth
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Payment *httpH.PaymentHandler
	Webhook *httpH.WebhookHandler
	Pricing *httpH.PricingHandler
	Admin   *httpH.AdminHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, stores Stores, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{PaymentDedup: httpMW.NewPaymentDedup(log, stores.Dedup, metrics)}
	if cfg.AdminJWTSecret != "" {
		mw.AdminAuth = httpMW.NewAdminAuth(log, cfg.AdminJWTSecret)
	}
	return mw
}

func wireHandlers(log *logger.Logger, db *gorm.DB, rdb *redis.Client, svcs Services, catalog *pricing.Catalog) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db, rdb),
		Payment: httpH.NewPaymentHandler(log, svcs.Payments),
		Webhook: httpH.NewWebhookHandler(log, svcs.Webhooks),
		Pricing: httpH.NewPricingHandler(catalog),
		Admin:   httpH.NewAdminHandler(log, svcs.Registrations, svcs.Orders),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, mw Middleware, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Tracing:        cfg.TracingEnabled,
		PaymentDedup:   mw.PaymentDedup,
		AdminAuth:      mw.AdminAuth,
		HealthHandler:  handlers.Health,
		PaymentHandler: handlers.Payment,
		WebhookHandler: handlers.Webhook,
		PricingHandler: handlers.Pricing,
		AdminHandler:   handlers.Admin,
	})
}
