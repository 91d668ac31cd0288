package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/matside-backend/internal/http/handlers"
	httpMW "github.com/yungbote/matside-backend/internal/http/middleware"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

const serviceName = "matside-backend"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	Tracing        bool

	PaymentDedup *httpMW.PaymentDedup
	AdminAuth    *httpMW.AdminAuth

	HealthHandler  *httpH.HealthHandler
	PaymentHandler *httpH.PaymentHandler
	WebhookHandler *httpH.WebhookHandler
	PricingHandler *httpH.PricingHandler
	AdminHandler   *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.HealthHandler != nil {
		api.GET("/health", cfg.HealthHandler.Health)
	}

	// Stripe webhook: raw body, no dedup
	if cfg.WebhookHandler != nil {
		api.POST("/stripe-webhook", cfg.WebhookHandler.Stripe)
	}

	// Payments
	if cfg.PaymentHandler != nil {
		payments := api.Group("")
		if cfg.PaymentDedup != nil {
			payments.Use(cfg.PaymentDedup.Handler())
		}
		payments.POST("/create-payment-intent", cfg.PaymentHandler.CreatePaymentIntent)
		payments.GET("/payments/lock/:sessionId", cfg.PaymentHandler.LockStatus)
	}

	// Pricing
	if cfg.PricingHandler != nil {
		api.GET("/events", cfg.PricingHandler.ListEvents)
		api.GET("/events/:eventId/pricing", cfg.PricingHandler.EventPricing)
		api.POST("/registrations/validate", cfg.PricingHandler.Validate)
	}

	// Admin
	if cfg.AdminHandler != nil && cfg.AdminAuth != nil {
		admin := api.Group("/admin")
		admin.Use(cfg.AdminAuth.RequireAdmin())
		admin.GET("/registrations/:id", cfg.AdminHandler.GetRegistration)
		admin.POST("/registrations/:id/retry-order", cfg.AdminHandler.RetryOrder)
		admin.POST("/orders/reconcile", cfg.AdminHandler.Reconcile)
	}

	return r
}
