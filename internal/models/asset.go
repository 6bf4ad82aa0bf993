package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// B3Suffix is appended to tickers to address them on the B3 exchange.
const B3Suffix = ".SA"

// Periodicities are the polling intervals, in minutes, the backend accepts.
var Periodicities = []int{5, 10, 15, 30, 60}

// ValidPeriodicity reports whether p is one of Periodicities.
func ValidPeriodicity(p int) bool {
	for _, v := range Periodicities {
		if v == p {
			return true
		}
	}
	return false
}

// NormalizeTicker uppercases a symbol and appends the B3 suffix when missing,
// e.g. "itub4" -> "ITUB4.SA".
func NormalizeTicker(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" || strings.HasSuffix(n, B3Suffix) {
		return n
	}
	return n + B3Suffix
}

// MonitoredAsset is one row of the user's watchlist.
type MonitoredAsset struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Periodicity  int             `json:"periodicity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	LowerLimit   decimal.Decimal `json:"lower_limit"`
	UpperLimit   decimal.Decimal `json:"upper_limit"`
}

// Symbol returns the ticker without the B3 suffix.
func (a MonitoredAsset) Symbol() string {
	return strings.TrimSuffix(a.Name, B3Suffix)
}

// BuyDistance is abs(currentPrice - lowerLimit).
func (a MonitoredAsset) BuyDistance() decimal.Decimal {
	return a.CurrentPrice.Sub(a.LowerLimit).Abs()
}

// SellHeadroom is upperLimit - currentPrice; negative once past the sell trigger.
func (a MonitoredAsset) SellHeadroom() decimal.Decimal {
	return a.UpperLimit.Sub(a.CurrentPrice)
}

// NewAsset is the body of /stock/create/.
type NewAsset struct {
	Name        string `json:"name"`
	Periodicity int    `json:"periodicity"`
}

// AssetUpdate is the body of /stock/update/{id}/.
type AssetUpdate struct {
	Periodicity int `json:"periodicity"`
}

// AssetUpdateResult is the canonical result of an update. Notice carries the
// backend message when it kept the limits unchanged (insufficient variation).
type AssetUpdateResult struct {
	Asset  MonitoredAsset
	Notice string
}

// Quote is the preview returned by /stock/quote/ before an asset is added.
type Quote struct {
	Name         string          `json:"name"`
	Periodicity  int             `json:"periodicity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	LowerLimit   decimal.Decimal `json:"lower_limit"`
	UpperLimit   decimal.Decimal `json:"upper_limit"`
}
