// Package storage selects the durable session store backend.
package storage

import (
	"fmt"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/storage/memstore"
	"github.com/bobmcallan/b3notifier/internal/storage/sqlitestore"
)

// Backend type constants.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// NewTokenStore creates a token store based on the configuration.
// Supported backends: "sqlite" (default), "memory".
func NewTokenStore(logger *common.Logger, config *common.StorageConfig) (interfaces.TokenStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		return sqlitestore.NewStore(logger, config.Path, config.GetWatchInterval())

	case BackendMemory:
		logger.Warn().Msg("Memory session store: login will not survive this process")
		return memstore.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, memory)", backend)
	}
}
