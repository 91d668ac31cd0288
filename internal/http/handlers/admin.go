package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

const (
	defaultReconcileLimit = 50
	maxReconcileLimit     = 500
)

type AdminHandler struct {
	log           *logger.Logger
	registrations services.RegistrationService
	orders        services.OrderSyncService
}

func NewAdminHandler(log *logger.Logger, registrations services.RegistrationService, orders services.OrderSyncService) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), registrations: registrations, orders: orders}
}

// GET /api/admin/registrations/:id
func (h *AdminHandler) GetRegistration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_registration_id", err)
		return
	}
	reg, err := h.registrations.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"registration": reg})
}

// POST /api/admin/registrations/:id/retry-order
func (h *AdminHandler) RetryOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_registration_id", err)
		return
	}
	res, err := h.orders.Sync(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	h.log.Info("Order retried by operator", "registration_id", id, "admin", c.GetString("admin_subject"), "order_status", res.OrderStatus)
	response.RespondOK(c, gin.H{"result": res})
}

// POST /api/admin/orders/reconcile?limit=N
func (h *AdminHandler) Reconcile(c *gin.Context) {
	limit := defaultReconcileLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	if limit > maxReconcileLimit {
		limit = maxReconcileLimit
	}
	report, err := h.orders.ReconcileFailed(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}
