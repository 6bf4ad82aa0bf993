package watchlist

import (
	"slices"
	"strings"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// View derives the rendered watchlist from the fetched assets, a free-text
// query and the proximity filter. The input slice is not modified.
//
// Near-buy ranks every match by distance to the lower limit. Near-sell drops
// assets already above their upper limit, then ranks by remaining headroom.
// Without a filter the fetch order is kept. Ties keep fetch order.
func View(assets []models.MonitoredAsset, query string, filter models.FilterState) []models.MonitoredAsset {
	out := Search(assets, query)

	switch filter.Active() {
	case models.FilterNearBuy:
		slices.SortStableFunc(out, func(a, b models.MonitoredAsset) int {
			return a.BuyDistance().Cmp(b.BuyDistance())
		})
	case models.FilterNearSell:
		out = slices.DeleteFunc(out, func(a models.MonitoredAsset) bool {
			return a.CurrentPrice.GreaterThan(a.UpperLimit)
		})
		slices.SortStableFunc(out, func(a, b models.MonitoredAsset) int {
			return a.SellHeadroom().Cmp(b.SellHeadroom())
		})
	}
	return out
}

// Search keeps the assets whose name contains query, ignoring case.
// An empty query keeps everything. The result is always a fresh slice.
func Search(assets []models.MonitoredAsset, query string) []models.MonitoredAsset {
	q := strings.ToLower(query)
	out := make([]models.MonitoredAsset, 0, len(assets))
	for _, a := range assets {
		if q == "" || strings.Contains(strings.ToLower(a.Name), q) {
			out = append(out, a)
		}
	}
	return out
}
