package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthProbeTimeout = 2 * time.Second

type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewHealthHandler accepts nil dependencies; absent ones report "disabled".
func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type componentHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GET /api/health
// The database is required. Redis degrades the status but the service keeps
// serving because the idempotency layers fail open.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	db := h.probeDB(ctx)
	rdb := h.probeRedis(ctx)

	status, code := "ok", http.StatusOK
	switch {
	case db.Status == "down":
		status, code = "down", http.StatusServiceUnavailable
	case rdb.Status == "down":
		status = "degraded"
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{"database": db, "redis": rdb},
	})
}

func (h *HealthHandler) probeDB(ctx context.Context) componentHealth {
	if h.db == nil {
		return componentHealth{Status: "down", Error: "not configured"}
	}
	start := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return componentHealth{Status: "down", Error: err.Error()}
	}
	return componentHealth{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
}

func (h *HealthHandler) probeRedis(ctx context.Context) componentHealth {
	if h.rdb == nil {
		return componentHealth{Status: "disabled"}
	}
	start := time.Now()
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		return componentHealth{Status: "down", Error: err.Error()}
	}
	return componentHealth{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
}
