package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	log      *logger.Logger
	webhooks services.WebhookService
}

func NewWebhookHandler(log *logger.Logger, webhooks services.WebhookService) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), webhooks: webhooks}
}

// POST /api/stripe-webhook
// The body must reach signature verification byte-for-byte, so it is read raw.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.webhooks.HandleStripeWebhook(c.Request.Context(), raw, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.RespondAPIError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{
		"received":  true,
		"eventId":   res.EventID,
		"type":      res.Type,
		"status":    res.Status,
		"duplicate": res.Duplicate,
	})
}
