package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAgoLabel(t *testing.T) {
	now := time.Date(2025, 1, 28, 14, 23, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", now.Add(-20 * time.Second), "just now"},
		{"minutes", now.Add(-3 * time.Minute), "3 min ago"},
		{"hours", now.Add(-2*time.Hour - 5*time.Minute), "2 h ago"},
		{"days", now.Add(-50 * time.Hour), "2 d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgoLabel(tt.at, now))
		})
	}
}

func TestCountdownLabel(t *testing.T) {
	assert.Equal(t, "02:05", CountdownLabel(125))
	assert.Equal(t, "00:00", CountdownLabel(-4))
	assert.Equal(t, "60:00", CountdownLabel(3600))
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2025, 1, 28, 14, 23, 0, 0, time.UTC)
	assert.False(t, IsFresh(time.Time{}, now, FreshnessAssets))
	assert.True(t, IsFresh(now.Add(-time.Minute), now, FreshnessAssets))
	assert.False(t, IsFresh(now.Add(-FreshnessAssets), now, FreshnessAssets))
}

func TestFormatBRL(t *testing.T) {
	out := FormatBRL(decimal.RequireFromString("29.5"))
	assert.Contains(t, out, "R$")
	assert.Contains(t, out, "29")
	assert.Contains(t, out, "50")
}

func TestFormatPercent(t *testing.T) {
	out := FormatPercent(decimal.RequireFromString("0.125"))
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "5%")
}
