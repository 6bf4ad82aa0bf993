package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/alert"
)

// FormatWatchlistMarkdown renders the watchlist as a markdown table in the
// order given.
func FormatWatchlistMarkdown(assets []models.MonitoredAsset) string {
	var sb strings.Builder

	sb.WriteString("# Watchlist\n\n")
	if len(assets) == 0 {
		sb.WriteString("No assets monitored.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Every | Price | Buy at | Sell at | To buy | To sell |\n")
	sb.WriteString("|--------|-------|-------|--------|---------|--------|---------|\n")

	for _, a := range assets {
		sb.WriteString(fmt.Sprintf("| %s | %d min | %s | %s | %s | %s | %s |\n",
			a.Name, a.Periodicity,
			common.FormatBRL(a.CurrentPrice), common.FormatBRL(a.LowerLimit), common.FormatBRL(a.UpperLimit),
			common.FormatBRL(a.BuyDistance()), formatHeadroom(a),
		))
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatHeadroom marks assets already past the sell limit.
func formatHeadroom(a models.MonitoredAsset) string {
	if a.SellHeadroom().IsNegative() {
		return "**past limit**"
	}
	return common.FormatBRL(a.SellHeadroom())
}

// FormatAlertsMarkdown renders the feed grouped by date, newest group first
// as delivered.
func FormatAlertsMarkdown(alerts []models.Alert) string {
	var sb strings.Builder

	sb.WriteString("# Alerts\n\n")
	if len(alerts) == 0 {
		sb.WriteString("No alerts yet.\n")
		return sb.String()
	}

	for _, g := range alert.GroupByDate(alerts) {
		sb.WriteString(fmt.Sprintf("## %s\n\n", g.Date))
		for _, a := range g.Alerts {
			sb.WriteString(fmt.Sprintf("- **%s** %s\n", a.AlertTime, alert.Describe(a)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
