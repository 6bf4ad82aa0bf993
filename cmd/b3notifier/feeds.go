package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/alert"
	"github.com/bobmcallan/b3notifier/internal/services/report"
	"github.com/bobmcallan/b3notifier/internal/ui"
)

func newAlertsCmd(opts *globalOpts) *cobra.Command {
	alerts := &cobra.Command{Use: "alerts", Short: "Read the alert feed"}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
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

			feed, err := a.Alerts.List(cmd.Context())
			if err != nil {
				return err
			}
			return report.WriteAlerts(cmd.OutOrStdout(), format, alert.Search(feed, search))
		},
	}
	list.Flags().StringVar(&search, "search", "", "only alerts for tickers containing this text")

	alerts.AddCommand(list)
	return alerts
}

func newUpdatesCmd(opts *globalOpts) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Show when prices were last refreshed and when the next refresh is due",
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

			out := cmd.OutOrStdout()
			if !watch {
				info, err := a.Client.GetUpdatesInfo(cmd.Context())
				if err != nil {
					return err
				}
				return report.WriteUpdateInfo(out, format, info, time.Now())
			}

			// Poll errors are logged by the poller and skipped here.
			a.NewUpdatePoller(func(info *models.UpdateInfo, err error) {
				if err == nil {
					_ = report.WriteUpdateInfo(out, format, info, time.Now())
				}
			}).Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	return cmd
}

func newTUICmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive watchlist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireLogin(a); err != nil {
				return err
			}

			return ui.Run(cmd.Context(), ui.Deps{
				Watchlist:      a.Watchlist,
				Alerts:         a.Alerts,
				Session:        a.Session,
				Updates:        a.Client,
				UpdateInterval: a.Config.Updates.GetInterval(),
				Logger:         a.Logger,
			})
		},
	}
}
