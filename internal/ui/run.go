package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/updates"
)

// Deps are the services the terminal front-end reads from.
type Deps struct {
	Watchlist      interfaces.WatchlistService
	Alerts         interfaces.AlertService
	Session        interfaces.SessionManager
	Updates        updates.Source
	UpdateInterval time.Duration
	Logger         *common.Logger
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var feed *updateFeed
	var updateEvents <-chan updateInfoMsg
	if deps.Updates != nil {
		feed = startUpdateFeed(ctx, deps.Updates, deps.UpdateInterval, logger)
		defer feed.Stop()
		updateEvents = feed.events
	}

	sessionEvents := make(chan models.SessionSnapshot, 16)
	unsubscribe := deps.Session.Subscribe(relaySession(sessionEvents, feed, logger))
	defer unsubscribe()
	if feed != nil && !deps.Session.Snapshot().Authenticated {
		feed.Stop()
	}

	m := NewModel(ctx, deps.Watchlist, deps.Alerts, deps.Session, sessionEvents, updateEvents)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// updateFeed runs the update poller until stopped. events is closed once the
// poller has returned.
type updateFeed struct {
	events chan updateInfoMsg
	cancel context.CancelFunc
	done   chan struct{}
}

func startUpdateFeed(ctx context.Context, source updates.Source, interval time.Duration, logger *common.Logger) *updateFeed {
	ctx, cancel := context.WithCancel(ctx)
	f := &updateFeed{
		events: make(chan updateInfoMsg, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	poller := updates.NewPoller(source, interval, logger, func(info *models.UpdateInfo, err error) {
		select {
		case f.events <- updateInfoMsg{info: info, err: err}:
		default:
		}
	})
	go func() {
		defer close(f.done)
		defer close(f.events)
		poller.Run(ctx)
	}()
	return f
}

// Stop cancels polling. Safe to call more than once.
func (f *updateFeed) Stop() {
	f.cancel()
}

// relaySession forwards snapshots to the model and stops the update feed when
// the session ends. Observers run under the session's transition lock, so it
// never blocks. feed may be nil.
func relaySession(events chan<- models.SessionSnapshot, feed *updateFeed, logger *common.Logger) func(models.SessionSnapshot) {
	return func(snap models.SessionSnapshot) {
		if !snap.Authenticated && feed != nil {
			feed.Stop()
		}
		select {
		case events <- snap:
		default:
			logger.Debug().Str("state", snap.State.String()).Msg("UI: session event dropped, queue full")
		}
	}
}
