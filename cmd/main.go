package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "matside",
	Short: "Camp registration backend: payments, webhooks and retail orders",
	Long: `matside serves the registration API that turns Stripe payments into
Shopify orders.

Available subcommands:
  serve     - Run the HTTP API (default)
  migrate   - Apply database migrations and exit
  reconcile - Re-dispatch paid registrations whose order failed or stalled
  quote     - Price a registration selection from the catalog`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd, quoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
