package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yungbote/matside-backend/internal/app"
	"github.com/yungbote/matside-backend/internal/platform/shutdown"
)

var reconcileLimit int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-dispatch paid registrations whose order failed or stalled",
	Long: `Scans paid registrations with a failed order, or one stuck pending, and
dispatches order creation again. With Temporal configured the work is handed
to the order_sync workflow; otherwise orders are created inline.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := app.LoadConfig()
		log, err := app.NewLogger(cfg.LogMode)
		if err != nil {
			return err
		}
		ctx, stop := shutdown.NotifyContext(cmd.Context(), log)
		defer stop()
		a, err := app.New(ctx, log, cfg)
		if err != nil {
			log.Sync()
			return err
		}
		defer a.Close()

		report, err := a.Services.Orders.ReconcileFailed(ctx, reconcileLimit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", 50, "maximum registrations to re-dispatch")
}
