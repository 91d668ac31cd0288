package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/data/repos"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

func wireRepos(db *gorm.DB, log *logger.Logger) repos.Set {
	log.Info("Wiring repos...")
	return repos.New(db, log)
}
