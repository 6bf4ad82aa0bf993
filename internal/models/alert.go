package models

import "time"

// AlertType enumerates the alert kinds the backend records.
type AlertType string

const (
	AlertAddition       AlertType = "addition"
	AlertRemoval        AlertType = "removal"
	AlertEdition        AlertType = "edition"
	AlertBuySuggestion  AlertType = "buy_suggestion"
	AlertSellSuggestion AlertType = "sell_suggestion"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertAddition, AlertRemoval, AlertEdition, AlertBuySuggestion, AlertSellSuggestion:
		return true
	}
	return false
}

// Suggestion reports whether the alert was generated by a price crossing.
func (t AlertType) Suggestion() bool {
	return t == AlertBuySuggestion || t == AlertSellSuggestion
}

// Wire formats for alert date and time.
const (
	AlertDateLayout = "2006-01-02"
	AlertTimeLayout = "15:04"
)

// Alert is an immutable, backend-owned feed entry.
type Alert struct {
	ID        int64     `json:"id"`
	AssetName string    `json:"asset_name"`
	AlertType AlertType `json:"alert_type"`
	AlertDate string    `json:"alert_date"` // YYYY-MM-DD
	AlertTime string    `json:"alert_time"` // HH:MM
}

// Timestamp combines AlertDate and AlertTime in loc. Unparseable values yield a zero time.
func (a Alert) Timestamp(loc *time.Location) time.Time {
	ts, err := time.ParseInLocation(AlertDateLayout+" "+AlertTimeLayout, a.AlertDate+" "+a.AlertTime, loc)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// NewAlert is the body of /alert/create/.
type NewAlert struct {
	AssetName string    `json:"asset_name"`
	AlertType AlertType `json:"alert_type"`
	AlertDate string    `json:"alert_date"`
	AlertTime string    `json:"alert_time"`
}

// NewAlertAt builds a NewAlert stamped with t.
func NewAlertAt(assetName string, alertType AlertType, t time.Time) NewAlert {
	return NewAlert{
		AssetName: assetName,
		AlertType: alertType,
		AlertDate: t.Format(AlertDateLayout),
		AlertTime: t.Format(AlertTimeLayout),
	}
}

// AlertGroup is a run of alerts sharing one calendar date.
type AlertGroup struct {
	Date   string
	Alerts []Alert
}
