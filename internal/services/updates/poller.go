// Package updates polls the backend price-refresh cadence.
package updates

import (
	"context"
	"time"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
)

// DefaultInterval matches the backend refresh granularity.
const DefaultInterval = 60 * time.Second

// Source is the single backend call the poller needs.
type Source interface {
	GetUpdatesInfo(ctx context.Context) (*models.UpdateInfo, error)
}

// Poller fetches update info immediately and then on a fixed interval.
// Errors are logged and passed to the callback; they never stop the loop.
type Poller struct {
	source   Source
	interval time.Duration
	logger   *common.Logger
	onUpdate func(*models.UpdateInfo, error)
}

// NewPoller creates a poller. onUpdate runs on the poller goroutine.
func NewPoller(source Source, interval time.Duration, logger *common.Logger, onUpdate func(*models.UpdateInfo, error)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Poller{source: source, interval: interval, logger: logger, onUpdate: onUpdate}
}

// Run blocks until ctx is cancelled. The ticker is released on return.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Update poller: stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Poll performs a single fetch.
func (p *Poller) Poll(ctx context.Context) (*models.UpdateInfo, error) {
	info, err := p.source.GetUpdatesInfo(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Msg("Update poller: fetch failed")
		}
		return nil, err
	}
	p.logger.Debug().
		Time("last_update", info.LastUpdate).
		Int("next_in_seconds", info.TimeUntilNextUpdateSecond).
		Msg("Update poller: refreshed")
	return info, nil
}

func (p *Poller) poll(ctx context.Context) {
	info, err := p.Poll(ctx)
	if ctx.Err() != nil {
		return
	}
	if p.onUpdate != nil {
		p.onUpdate(info, err)
	}
}
