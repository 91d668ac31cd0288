package domain

import "github.com/yungbote/matside-backend/internal/domain/registrations"

type Registration = registrations.Registration
type WebhookEvent = registrations.WebhookEvent

const (
	PaymentStatusPending = registrations.PaymentStatusPending
	PaymentStatusPaid    = registrations.PaymentStatusPaid
	PaymentStatusFailed  = registrations.PaymentStatusFailed

	OrderStatusNone     = registrations.OrderStatusNone
	OrderStatusPending  = registrations.OrderStatusPending
	OrderStatusCreating = registrations.OrderStatusCreating
	OrderStatusCreated  = registrations.OrderStatusCreated
	OrderStatusFailed   = registrations.OrderStatusFailed

	WebhookStatusReceived  = registrations.WebhookStatusReceived
	WebhookStatusProcessed = registrations.WebhookStatusProcessed
	WebhookStatusFailed    = registrations.WebhookStatusFailed
	WebhookStatusIgnored   = registrations.WebhookStatusIgnored
)
