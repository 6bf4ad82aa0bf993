package ui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
)

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) GetUpdatesInfo(context.Context) (*models.UpdateInfo, error) {
	s.calls.Add(1)
	return &models.UpdateInfo{LastUpdate: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC), TimeUntilNextUpdateSecond: 30}, nil
}

func feedStopped(f *updateFeed) bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func TestRelaySession_SessionEndStopsUpdateFeed(t *testing.T) {
	source := &countingSource{}
	feed := startUpdateFeed(context.Background(), source, 10*time.Millisecond, common.NewSilentLogger())
	defer feed.Stop()

	events := make(chan models.SessionSnapshot, 4)
	relay := relaySession(events, feed, common.NewSilentLogger())

	relay(models.SessionSnapshot{State: models.StateReady, Authenticated: true})
	require.Eventually(t, func() bool { return source.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, feedStopped(feed), "an authenticated snapshot keeps polling")

	relay(models.SessionSnapshot{State: models.StateAnonymous})
	require.Eventually(t, func() bool { return feedStopped(feed) }, 2*time.Second, 5*time.Millisecond)

	settled := source.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, source.calls.Load(), "no polling after the session ends")

	assert.Len(t, events, 2, "both snapshots reach the model")
	// events is closed with the poller, so the model's reader returns
	for range feed.events {
	}
}

func TestRelaySession_NilFeed(t *testing.T) {
	events := make(chan models.SessionSnapshot, 1)
	relay := relaySession(events, nil, common.NewSilentLogger())

	relay(models.SessionSnapshot{State: models.StateAnonymous})
	relay(models.SessionSnapshot{State: models.StateAnonymous})
	assert.Len(t, events, 1, "a full queue drops instead of blocking")
}
