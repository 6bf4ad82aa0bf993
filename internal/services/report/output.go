// Package report renders watchlist, alert and session data for the terminal:
// tables, JSON, YAML, markdown and PNG charts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/alert"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --output values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown}

// ParseFormat resolves a user-supplied format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTable, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want table, json, yaml or markdown)", s)
}

// AssetRow is the serialized form of a watchlist entry.
type AssetRow struct {
	ID           int64   `json:"id" yaml:"id"`
	Ticker       string  `json:"ticker" yaml:"ticker"`
	Periodicity  int     `json:"periodicity" yaml:"periodicity"`
	CurrentPrice string  `json:"current_price" yaml:"current_price"`
	LowerLimit   string  `json:"lower_limit" yaml:"lower_limit"`
	UpperLimit   string  `json:"upper_limit" yaml:"upper_limit"`
	BuyDistance  string  `json:"buy_distance" yaml:"buy_distance"`
	SellHeadroom string  `json:"sell_headroom" yaml:"sell_headroom"`
	BandPosition float64 `json:"band_position" yaml:"band_position"`
}

// AssetRows converts assets, keeping their order.
func AssetRows(assets []models.MonitoredAsset) []AssetRow {
	rows := make([]AssetRow, len(assets))
	for i, a := range assets {
		rows[i] = AssetRow{
			ID:           a.ID,
			Ticker:       a.Name,
			Periodicity:  a.Periodicity,
			CurrentPrice: a.CurrentPrice.StringFixed(2),
			LowerLimit:   a.LowerLimit.StringFixed(2),
			UpperLimit:   a.UpperLimit.StringFixed(2),
			BuyDistance:  a.BuyDistance().StringFixed(2),
			SellHeadroom: a.SellHeadroom().StringFixed(2),
			BandPosition: BandPosition(a),
		}
	}
	return rows
}

// AlertRow is the serialized form of an alert.
type AlertRow struct {
	ID          int64  `json:"id" yaml:"id"`
	Ticker      string `json:"ticker" yaml:"ticker"`
	Type        string `json:"type" yaml:"type"`
	Date        string `json:"date" yaml:"date"`
	Time        string `json:"time" yaml:"time"`
	Description string `json:"description" yaml:"description"`
}

// AlertRows converts alerts, keeping their order.
func AlertRows(alerts []models.Alert) []AlertRow {
	rows := make([]AlertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = AlertRow{
			ID:          a.ID,
			Ticker:      a.AssetName,
			Type:        string(a.AlertType),
			Date:        a.AlertDate,
			Time:        a.AlertTime,
			Description: alert.Describe(a),
		}
	}
	return rows
}

// Status is the serialized session summary.
type Status struct {
	Authenticated bool       `json:"authenticated" yaml:"authenticated"`
	State         string     `json:"state" yaml:"state"`
	Username      string     `json:"username,omitempty" yaml:"username,omitempty"`
	Email         string     `json:"email,omitempty" yaml:"email,omitempty"`
	TokenExpiry   *time.Time `json:"token_expiry,omitempty" yaml:"token_expiry,omitempty"`
	Error         string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatus summarizes a session snapshot.
func NewStatus(snap models.SessionSnapshot) Status {
	st := Status{
		Authenticated: snap.Authenticated,
		State:         snap.State.String(),
	}
	if snap.User != nil {
		st.Username = snap.User.Username
		st.Email = snap.User.Email
	}
	if !snap.TokenExpiry.IsZero() {
		exp := snap.TokenExpiry
		st.TokenExpiry = &exp
	}
	if snap.LastError != nil {
		st.Error = snap.LastError.Error()
	}
	return st
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// WriteAssets writes the watchlist in the requested format.
func WriteAssets(w io.Writer, format Format, assets []models.MonitoredAsset) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, AssetRows(assets))
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(AssetRows(assets))
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatWatchlistMarkdown(assets))
		return err
	}

	if len(assets) == 0 {
		_, err := fmt.Fprintln(w, "No assets monitored.")
		return err
	}
	rows := make([][]string, len(assets))
	for i, a := range assets {
		rows[i] = []string{
			fmt.Sprint(a.ID),
			a.Name,
			fmt.Sprintf("%d min", a.Periodicity),
			common.FormatBRL(a.CurrentPrice),
			common.FormatBRL(a.LowerLimit),
			common.FormatBRL(a.UpperLimit),
			common.FormatPercent(decimal.NewFromFloat(BandPosition(a)).Div(hundred)),
		}
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"ID", "Ticker", "Every", "Price", "Buy at", "Sell at", "Band"}, rows))
	return err
}

// WriteQuote writes a quote preview in the requested format.
func WriteQuote(w io.Writer, format Format, q *models.Quote) error {
	asset := models.MonitoredAsset{
		Name:         q.Name,
		Periodicity:  q.Periodicity,
		CurrentPrice: q.CurrentPrice,
		LowerLimit:   q.LowerLimit,
		UpperLimit:   q.UpperLimit,
	}
	switch format {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return WriteAssets(w, format, []models.MonitoredAsset{asset})
	}
	_, err := fmt.Fprintf(w, "%s every %d min\n  price   %s\n  buy at  %s\n  sell at %s\n",
		q.Name, q.Periodicity,
		common.FormatBRL(q.CurrentPrice), common.FormatBRL(q.LowerLimit), common.FormatBRL(q.UpperLimit))
	return err
}

// WriteAlerts writes the alert feed in the requested format.
func WriteAlerts(w io.Writer, format Format, alerts []models.Alert) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, AlertRows(alerts))
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(AlertRows(alerts))
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatAlertsMarkdown(alerts))
		return err
	}

	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, "No alerts yet.")
		return err
	}
	rows := make([][]string, len(alerts))
	for i, a := range alerts {
		rows[i] = []string{a.AlertDate, a.AlertTime, a.AssetName, alert.Describe(a)}
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"Date", "Time", "Ticker", "Alert"}, rows))
	return err
}

// WriteStatus writes the session summary in the requested format.
func WriteStatus(w io.Writer, format Format, st Status, now time.Time) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, st)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(st)
	}

	if !st.Authenticated {
		msg := "Not logged in."
		if st.Error != "" {
			msg += " Last error: " + st.Error
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	var sb strings.Builder
	if st.Username != "" {
		sb.WriteString(fmt.Sprintf("Logged in as %s", st.Username))
		if st.Email != "" {
			sb.WriteString(fmt.Sprintf(" <%s>", st.Email))
		}
	} else {
		sb.WriteString("Logged in (profile " + st.State + ")")
	}
	sb.WriteString("\n")
	if st.TokenExpiry != nil {
		if st.TokenExpiry.After(now) {
			sb.WriteString(fmt.Sprintf("Access token expires in %s\n", st.TokenExpiry.Sub(now).Round(time.Minute)))
		} else {
			sb.WriteString("Access token expired " + common.AgoLabel(*st.TokenExpiry, now) + "\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteUpdateInfo writes the price refresh cadence in the requested format.
func WriteUpdateInfo(w io.Writer, format Format, info *models.UpdateInfo, now time.Time) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, info)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(info)
	}
	_, err := fmt.Fprintf(w, "Last update: %s\nNext update in: %s\n",
		common.AgoLabel(info.LastUpdate, now), common.CountdownLabel(info.TimeUntilNextUpdateSecond))
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
