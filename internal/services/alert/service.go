// Package alert reads and organizes the alert feed.
package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
)

// Compile-time interface check
var _ interfaces.AlertService = (*Service)(nil)

// Service implements AlertService
type Service struct {
	client interfaces.BackendClient
	logger *common.Logger
}

// NewService creates a new alert service
func NewService(client interfaces.BackendClient, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{client: client, logger: logger}
}

// List returns the feed in backend order (newest first).
func (s *Service) List(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.client.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	s.logger.Debug().Int("count", len(alerts)).Msg("Alerts fetched")
	return alerts, nil
}

// Search keeps alerts whose asset name contains query, ignoring case.
func Search(alerts []models.Alert, query string) []models.Alert {
	q := strings.ToLower(query)
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if q == "" || strings.Contains(strings.ToLower(a.AssetName), q) {
			out = append(out, a)
		}
	}
	return out
}

// GroupByDate splits alerts into runs of the same AlertDate. Groups appear in
// order of first occurrence and alerts keep their relative order.
func GroupByDate(alerts []models.Alert) []models.AlertGroup {
	var groups []models.AlertGroup
	index := make(map[string]int)
	for _, a := range alerts {
		i, ok := index[a.AlertDate]
		if !ok {
			i = len(groups)
			index[a.AlertDate] = i
			groups = append(groups, models.AlertGroup{Date: a.AlertDate})
		}
		groups[i].Alerts = append(groups[i].Alerts, a)
	}
	return groups
}

// Describe returns a one-line human description of an alert.
func Describe(a models.Alert) string {
	switch a.AlertType {
	case models.AlertAddition:
		return a.AssetName + " added to the watchlist"
	case models.AlertRemoval:
		return a.AssetName + " removed from the watchlist"
	case models.AlertEdition:
		return a.AssetName + " periodicity changed"
	case models.AlertBuySuggestion:
		return a.AssetName + " reached its buy limit"
	case models.AlertSellSuggestion:
		return a.AssetName + " reached its sell limit"
	default:
		return a.AssetName + ": " + string(a.AlertType)
	}
}
