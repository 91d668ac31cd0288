package services

import (
	"errors"
	"net/http"

	"github.com/yungbote/matside-backend/internal/platform/apierr"
	"github.com/yungbote/matside-backend/internal/pricing"
)

const DuplicateUserMessage = "We're already processing your registration. Please wait a moment before trying again."

var (
	ErrMissingSession       = apierr.New(http.StatusBadRequest, "missing_session", errors.New("sessionId is required")).WithUserMessage("Your checkout session expired. Please refresh the page and try again.")
	ErrDuplicatePayment     = apierr.New(http.StatusTooManyRequests, "duplicate_request", errors.New("a payment for this session is already being created")).WithUserMessage(DuplicateUserMessage)
	ErrPaymentProvider      = apierr.New(http.StatusBadGateway, "payment_provider_error", errors.New("payment provider request failed")).WithUserMessage("We couldn't start your payment. Please try again in a moment.")
	ErrRegistrationNotFound = apierr.New(http.StatusNotFound, "registration_not_found", errors.New("registration not found"))
	ErrNotPaid              = apierr.New(http.StatusConflict, "registration_not_paid", errors.New("registration has not been paid"))
	ErrOrderInProgress      = apierr.New(http.StatusConflict, "order_in_progress", errors.New("order creation already in progress"))
	ErrOrdersNotConfigured  = apierr.New(http.StatusServiceUnavailable, "orders_not_configured", errors.New("order platform is not configured"))
	ErrWebhookSignature     = apierr.New(http.StatusBadRequest, "invalid_signature", errors.New("webhook signature verification failed"))
	ErrWebhookNotConfigured = apierr.New(http.StatusServiceUnavailable, "webhook_not_configured", errors.New("webhook secret is not configured"))
)

// pricingError maps calculator failures onto API errors.
func pricingError(err error) error {
	var ve *pricing.ValidationError
	switch {
	case errors.As(err, &ve):
		return apierr.New(http.StatusBadRequest, "invalid_selection", err).
			WithDetails(ve.Reasons).
			WithUserMessage("Please check your day and date selections.")
	case errors.Is(err, pricing.ErrUnknownEvent):
		return apierr.New(http.StatusNotFound, "unknown_event", err)
	case errors.Is(err, pricing.ErrTierUnavailable):
		return apierr.New(http.StatusBadRequest, "tier_unavailable", err)
	default:
		return err
	}
}
