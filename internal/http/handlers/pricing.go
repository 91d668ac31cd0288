package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/pricing"
)

type PricingHandler struct {
	catalog *pricing.Catalog
}

func NewPricingHandler(catalog *pricing.Catalog) *PricingHandler {
	if catalog == nil {
		catalog = pricing.Default()
	}
	return &PricingHandler{catalog: catalog}
}

// GET /api/events
func (h *PricingHandler) ListEvents(c *gin.Context) {
	response.RespondOK(c, gin.H{"events": h.catalog.Events()})
}

// GET /api/events/:eventId/pricing
func (h *PricingHandler) EventPricing(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("eventId"))
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_event_id", fmt.Errorf("invalid event id %q", c.Param("eventId")))
		return
	}
	p, ok := h.catalog.GetEventPricing(id)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "unknown_event", fmt.Errorf("%w: %d", pricing.ErrUnknownEvent, id))
		return
	}
	response.RespondOK(c, p)
}

// POST /api/registrations/validate
// Always 200 for a well-formed body; the verdict is in the quote.
func (h *PricingHandler) Validate(c *gin.Context) {
	var req pricing.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	response.RespondOK(c, h.catalog.Quote(req))
}
