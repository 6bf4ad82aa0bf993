package report

import (
	"bytes"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/b3notifier/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BandPosition places the current price inside the [lower, upper] band:
// 0 at the buy limit, 100 at the sell limit. Prices outside the band fall
// below 0 or above 100. A collapsed band yields 50.
func BandPosition(a models.MonitoredAsset) float64 {
	width := a.UpperLimit.Sub(a.LowerLimit)
	if width.IsZero() {
		return 50
	}
	f, _ := a.CurrentPrice.Sub(a.LowerLimit).Div(width).Mul(hundred).Round(1).Float64()
	return f
}

// RenderWatchlistChart renders a PNG bar chart of each asset's band
// position, in the given order. Bars past a limit are highlighted.
// Returns raw PNG bytes.
func RenderWatchlistChart(assets []models.MonitoredAsset) ([]byte, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("need at least 1 asset, got 0")
	}

	bars := make([]chart.Value, len(assets))
	lo, hi := 0.0, 100.0
	for i, a := range assets {
		pos := BandPosition(a)
		lo = math.Min(lo, pos)
		hi = math.Max(hi, pos)

		color := drawing.ColorFromHex("2563eb") // blue-600
		switch {
		case pos <= 0:
			color = drawing.ColorFromHex("16a34a") // green-600, buy zone
		case pos >= 100:
			color = drawing.ColorFromHex("dc2626") // red-600, sell zone
		}

		bars[i] = chart.Value{
			Label: a.Symbol(),
			Value: pos,
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 1,
			},
		}
	}

	graph := chart.BarChart{
		Title:  "Watchlist: position between buy and sell limits",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:     40,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
