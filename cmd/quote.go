package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yungbote/matside-backend/internal/app"
	"github.com/yungbote/matside-backend/internal/pricing"
)

var quoteFlags struct {
	event   int
	option  string
	days    int
	dates   []string
	catalog string
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a registration selection from the catalog",
	Example: `  matside quote --event 1 --option single
  matside quote --event 2 --option 2day --days 2 --dates "June 5" --dates "June 6"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := app.NewLogger("production")
		if err != nil {
			return err
		}
		defer log.Sync()

		path := quoteFlags.catalog
		if path == "" {
			path = app.LoadConfig().PricingCatalogPath
		}
		catalog, err := app.LoadCatalog(log, path)
		if err != nil {
			return err
		}
		q := catalog.Quote(pricing.Request{
			EventID:       quoteFlags.event,
			Option:        quoteFlags.option,
			NumberOfDays:  quoteFlags.days,
			SelectedDates: quoteFlags.dates,
		})
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

func init() {
	f := quoteCmd.Flags()
	f.IntVar(&quoteFlags.event, "event", 0, "event id")
	f.StringVar(&quoteFlags.option, "option", "full", "full, single, 1day or 2day")
	f.IntVar(&quoteFlags.days, "days", 0, "number of days for flexible options")
	f.StringArrayVar(&quoteFlags.dates, "dates", nil, "selected date, repeatable")
	f.StringVar(&quoteFlags.catalog, "catalog", "", "pricing catalog YAML (defaults to PRICING_CATALOG_PATH)")
	_ = quoteCmd.MarkFlagRequired("event")
}
