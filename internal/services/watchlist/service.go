// Package watchlist provides the monitored-asset service and the derived
// watchlist view.
package watchlist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	client interfaces.BackendClient
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new watchlist service
func NewService(client interfaces.BackendClient, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the watchlist in backend order.
func (s *Service) List(ctx context.Context) ([]models.MonitoredAsset, error) {
	assets, err := s.client.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// Quote previews price and limits for a ticker before it is added.
func (s *Service) Quote(ctx context.Context, name string, periodicity int) (*models.Quote, error) {
	ticker, err := validate(name, periodicity)
	if err != nil {
		return nil, err
	}
	q, err := s.client.GetQuote(ctx, ticker, periodicity)
	if err != nil {
		return nil, fmt.Errorf("failed to quote %s: %w", ticker, err)
	}
	return q, nil
}

// Add starts monitoring a ticker and records an addition alert.
func (s *Service) Add(ctx context.Context, name string, periodicity int) (*models.MonitoredAsset, error) {
	ticker, err := validate(name, periodicity)
	if err != nil {
		return nil, err
	}

	asset, err := s.client.CreateAsset(ctx, models.NewAsset{Name: ticker, Periodicity: periodicity})
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", ticker, err)
	}

	s.logger.Info().Str("ticker", asset.Name).Int("periodicity", periodicity).Msg("Asset added")
	s.recordAlert(ctx, asset.Name, models.AlertAddition)
	return asset, nil
}

// Edit changes an asset's periodicity and records an edition alert. The
// result's Notice is set when the backend kept the limits unchanged.
func (s *Service) Edit(ctx context.Context, asset models.MonitoredAsset, periodicity int) (*models.AssetUpdateResult, error) {
	if !models.ValidPeriodicity(periodicity) {
		return nil, periodicityError(periodicity)
	}

	res, err := s.client.UpdateAsset(ctx, asset.ID, models.AssetUpdate{Periodicity: periodicity})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", asset.Name, err)
	}

	s.logger.Info().Str("ticker", asset.Name).Int("periodicity", periodicity).Str("notice", res.Notice).Msg("Asset updated")
	s.recordAlert(ctx, asset.Name, models.AlertEdition)
	return res, nil
}

// Remove stops monitoring an asset and records a removal alert.
func (s *Service) Remove(ctx context.Context, asset models.MonitoredAsset) error {
	if err := s.client.DeleteAsset(ctx, asset.ID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", asset.Name, err)
	}

	s.logger.Info().Str("ticker", asset.Name).Msg("Asset removed")
	s.recordAlert(ctx, asset.Name, models.AlertRemoval)
	return nil
}

// recordAlert posts a client-side alert. The asset change already succeeded,
// so a failure here is only logged.
func (s *Service) recordAlert(ctx context.Context, assetName string, alertType models.AlertType) {
	if _, err := s.client.CreateAlert(ctx, models.NewAlertAt(assetName, alertType, s.now())); err != nil {
		s.logger.Warn().Err(err).Str("ticker", assetName).Str("alert_type", string(alertType)).Msg("Failed to record alert")
	}
}

func validate(name string, periodicity int) (string, error) {
	ticker := models.NormalizeTicker(name)
	if ticker == "" {
		return "", &models.ValidationError{Field: "name", Message: "ticker is required"}
	}
	if !models.ValidPeriodicity(periodicity) {
		return "", periodicityError(periodicity)
	}
	return ticker, nil
}

func periodicityError(p int) error {
	return &models.ValidationError{
		Field:   "periodicity",
		Message: strconv.Itoa(p) + " is not one of " + fmt.Sprint(models.Periodicities) + " minutes",
	}
}
