package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/yungbote/matside-backend/internal/app"
	"github.com/yungbote/matside-backend/internal/platform/shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := app.LoadConfig()
	log, err := app.NewLogger(cfg.LogMode)
	if err != nil {
		return err
	}
	ctx, stop := shutdown.NotifyContext(cmd.Context(), log)
	defer stop()
	log.Info("Starting matside", "env", cfg.Environment, "version", cfg.Version, "port", cfg.Port)

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Error("Startup failed", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped with error", "error", err)
		return err
	}
	log.Info("Shutdown complete")
	return nil
}
