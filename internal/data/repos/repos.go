package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/data/repos/payments"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type RegistrationRepo = payments.RegistrationRepo
type WebhookEventRepo = payments.WebhookEventRepo

type Set struct {
	Registrations RegistrationRepo
	WebhookEvents WebhookEventRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Registrations: payments.NewRegistrationRepo(db, log),
		WebhookEvents: payments.NewWebhookEventRepo(db, log),
	}
}
