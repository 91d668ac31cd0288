package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/matside-backend/internal/app"
	"github.com/yungbote/matside-backend/internal/data/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := app.LoadConfig()
		log, err := app.NewLogger(cfg.LogMode)
		if err != nil {
			return err
		}
		defer log.Sync()

		dbs, err := db.Open(log, cfg.DB)
		if err != nil {
			return err
		}
		defer dbs.Close()
		if err := dbs.AutoMigrateAll(); err != nil {
			return err
		}
		log.Info("Migrations applied", "driver", cfg.DB.Driver)
		return nil
	},
}
