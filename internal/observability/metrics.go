package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/platform/envutil"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

// Metrics is nil when metrics are disabled. Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	webhookReceived *prometheus.CounterVec
	webhookSuccess  *prometheus.CounterVec
	webhookFailure  *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	ordersFailed    *prometheus.CounterVec
	paymentIntents  *prometheus.CounterVec
	duplicates      *prometheus.CounterVec
	critical        *prometheus.CounterVec

	dbStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// Init builds the process-wide metrics once. It returns nil unless METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New(prometheus.NewRegistry())
		if log != nil {
			log.Info("Metrics enabled")
		}
	})
	return instance
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matside_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matside_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		webhookReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_webhook_received_total",
			Help: "Payment webhooks received by event type.",
		}, []string{"type"}),
		webhookSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_webhook_success_total",
			Help: "Payment webhooks handled successfully by event type.",
		}, []string{"type"}),
		webhookFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_webhook_failure_total",
			Help: "Payment webhooks that failed by event type.",
		}, []string{"type"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matside_orders_created_total",
			Help: "Retail orders created for paid registrations.",
		}),
		ordersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_orders_failed_total",
			Help: "Retail order creation failures by reason.",
		}, []string{"reason"}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_payment_intents_total",
			Help: "Payment intent requests by result.",
		}, []string{"result"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_duplicate_rejections_total",
			Help: "Duplicate payment attempts rejected by layer.",
		}, []string{"layer"}),
		critical: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matside_critical_failures_total",
			Help: "Critical external-service failures by type.",
		}, []string{"type"}),
		dbStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matside_db_pool",
			Help: "Database connection pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matside_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matside_redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.webhookReceived, m.webhookSuccess, m.webhookFailure,
		m.ordersCreated, m.ordersFailed, m.paymentIntents, m.duplicates, m.critical,
		m.dbStats, m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the Prometheus exposition for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes metrics on a dedicated listener until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) TrackWebhookReceived(eventType string) {
	if m == nil {
		return
	}
	m.webhookReceived.WithLabelValues(labelOr(eventType)).Inc()
}

func (m *Metrics) TrackWebhookSuccess(eventType string) {
	if m == nil {
		return
	}
	m.webhookSuccess.WithLabelValues(labelOr(eventType)).Inc()
}

func (m *Metrics) TrackWebhookFailure(eventType string) {
	if m == nil {
		return
	}
	m.webhookFailure.WithLabelValues(labelOr(eventType)).Inc()
}

func (m *Metrics) TrackOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) TrackOrderFailed(reason string) {
	if m == nil {
		return
	}
	m.ordersFailed.WithLabelValues(labelOr(reason)).Inc()
}

// TrackPaymentIntent counts create-payment-intent outcomes: created, reused, rejected, failed.
func (m *Metrics) TrackPaymentIntent(result string) {
	if m == nil {
		return
	}
	m.paymentIntents.WithLabelValues(labelOr(result)).Inc()
}

// TrackDuplicate counts rejections by layer: "dedup" or "lock".
func (m *Metrics) TrackDuplicate(layer string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(labelOr(layer)).Inc()
}

func (m *Metrics) trackCritical(kind string) {
	if m == nil {
		return
	}
	m.critical.WithLabelValues(labelOr(kind)).Inc()
}

func labelOr(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.dbStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
