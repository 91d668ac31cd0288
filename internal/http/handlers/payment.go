package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

const headerSessionID = "X-Session-Id"

type PaymentHandler struct {
	log      *logger.Logger
	payments services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{log: log.With("handler", "PaymentHandler"), payments: payments}
}

// POST /api/create-payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var in services.RegistrationDetails
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(in.SessionID) == "" {
		in.SessionID = c.GetHeader(headerSessionID)
	}
	res, err := h.payments.CreatePaymentIntent(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/payments/lock/:sessionId
func (h *PaymentHandler) LockStatus(c *gin.Context) {
	lk, err := h.payments.LockStatus(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, lk)
}
