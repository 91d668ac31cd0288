package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/matside-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Registration{},
		&types.WebhookEvent{},
	)
}
