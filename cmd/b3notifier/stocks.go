package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/b3notifier/internal/app"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/report"
	"github.com/bobmcallan/b3notifier/internal/services/watchlist"
)

// viewFlags select what part of the watchlist is shown and in what order.
type viewFlags struct {
	search   string
	nearBuy  bool
	nearSell bool
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "only tickers containing this text")
	cmd.Flags().BoolVar(&f.nearBuy, "near-buy", false, "rank by distance to the buy limit")
	cmd.Flags().BoolVar(&f.nearSell, "near-sell", false, "rank by headroom to the sell limit, hiding assets past it")
	cmd.MarkFlagsMutuallyExclusive("near-buy", "near-sell")
}

func (f *viewFlags) apply(assets []models.MonitoredAsset) []models.MonitoredAsset {
	var filter models.FilterState
	if f.nearBuy {
		filter = filter.Toggle(models.FilterNearBuy)
	}
	if f.nearSell {
		filter = filter.Toggle(models.FilterNearSell)
	}
	return watchlist.View(assets, f.search, filter)
}

// findAsset resolves a ticker to the monitored asset carrying its id.
func findAsset(ctx context.Context, a *app.App, ticker string) (models.MonitoredAsset, error) {
	assets, err := a.Watchlist.List(ctx)
	if err != nil {
		return models.MonitoredAsset{}, err
	}
	name := models.NormalizeTicker(ticker)
	for _, asset := range assets {
		if asset.Name == name {
			return asset, nil
		}
	}
	return models.MonitoredAsset{}, fmt.Errorf("%s is not on the watchlist", name)
}

func newStocksCmd(opts *globalOpts) *cobra.Command {
	stocks := &cobra.Command{Use: "stocks", Short: "Manage the monitored assets"}

	var vf viewFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List monitored assets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			assets, err := a.Watchlist.List(cmd.Context())
			if err != nil {
				return err
			}
			return report.WriteAssets(cmd.OutOrStdout(), format, vf.apply(assets))
		},
	}
	vf.register(list)

	var addPeriodicity int
	add := &cobra.Command{
		Use:   "add <ticker>",
		Short: "Start monitoring a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			asset, err := a.Watchlist.Add(cmd.Context(), args[0], addPeriodicity)
			if err != nil {
				return err
			}
			return report.WriteAssets(cmd.OutOrStdout(), format, []models.MonitoredAsset{*asset})
		},
	}
	add.Flags().IntVarP(&addPeriodicity, "periodicity", "p", 15, "minutes between price checks: 5|10|15|30|60")

	var editPeriodicity int
	edit := &cobra.Command{
		Use:   "edit <ticker>",
		Short: "Change how often a ticker is checked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			ctx := cmd.Context()
			asset, err := findAsset(ctx, a, args[0])
			if err != nil {
				return err
			}
			res, err := a.Watchlist.Edit(ctx, asset, editPeriodicity)
			if err != nil {
				return err
			}
			if res.Notice != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), res.Notice)
			}
			return report.WriteAssets(cmd.OutOrStdout(), format, []models.MonitoredAsset{res.Asset})
		},
	}
	edit.Flags().IntVarP(&editPeriodicity, "periodicity", "p", 15, "minutes between price checks: 5|10|15|30|60")
	_ = edit.MarkFlagRequired("periodicity")

	rm := &cobra.Command{
		Use:     "rm <ticker>",
		Aliases: []string{"remove"},
		Short:   "Stop monitoring a ticker",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			ctx := cmd.Context()
			asset, err := findAsset(ctx, a, args[0])
			if err != nil {
				return err
			}
			if err := a.Watchlist.Remove(ctx, asset); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s removed from the watchlist\n", asset.Name)
			return nil
		},
	}

	var quotePeriodicity int
	quote := &cobra.Command{
		Use:   "quote <ticker>",
		Short: "Preview price and limits before adding a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			q, err := a.Watchlist.Quote(cmd.Context(), args[0], quotePeriodicity)
			if err != nil {
				return err
			}
			return report.WriteQuote(cmd.OutOrStdout(), format, q)
		},
	}
	quote.Flags().IntVarP(&quotePeriodicity, "periodicity", "p", 15, "minutes between price checks: 5|10|15|30|60")

	var chartVF viewFlags
	var chartOut string
	chartCmd := &cobra.Command{
		Use:   "chart",
		Short: "Write a PNG chart of where each price sits between its limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			assets, err := a.Watchlist.List(cmd.Context())
			if err != nil {
				return err
			}
			png, err := report.RenderWatchlistChart(chartVF.apply(assets))
			if err != nil {
				return err
			}
			if err := os.WriteFile(chartOut, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartOut)
			return nil
		},
	}
	chartVF.register(chartCmd)
	chartCmd.Flags().StringVar(&chartOut, "out", "watchlist.png", "output PNG path")

	stocks.AddCommand(list, add, edit, rm, quote, chartCmd)
	return stocks
}
