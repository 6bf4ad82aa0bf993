// Package common provides shared utilities for b3notifier
package common

import (
	"fmt"
	"time"
)

// FreshnessAssets is how long a fetched watchlist is shown without a refresh hint.
const FreshnessAssets = 5 * time.Minute

// IsFresh returns true if the given timestamp is within the TTL at now
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}

// AgoLabel renders the elapsed time between t and now as a short label,
// e.g. "just now", "3 min ago", "2 h ago".
func AgoLabel(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d d ago", int(d/(24*time.Hour)))
	}
}

// CountdownLabel renders a remaining duration in seconds as "mm:ss".
func CountdownLabel(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
