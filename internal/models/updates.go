package models

import "time"

// UpdateInfo describes the backend price refresh cadence.
type UpdateInfo struct {
	LastUpdate                time.Time `json:"last_update"`
	NextUpdate                time.Time `json:"next_update"`
	TimeUntilNextUpdateSecond int       `json:"time_until_next_update_seconds"`
}
