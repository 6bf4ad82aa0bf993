// Package app wires configuration, storage, the backend client and the
// services into one object shared by every command.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/b3notifier/internal/clients/backend"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/alert"
	"github.com/bobmcallan/b3notifier/internal/services/register"
	"github.com/bobmcallan/b3notifier/internal/services/session"
	"github.com/bobmcallan/b3notifier/internal/services/updates"
	"github.com/bobmcallan/b3notifier/internal/services/watchlist"
	"github.com/bobmcallan/b3notifier/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Store        interfaces.TokenStore
	Client       *backend.Client
	Session      *session.Manager
	Watchlist    *watchlist.Service
	Alerts       *alert.Service
	Registration *register.Service
	StartupTime  time.Time

	logCloser io.Closer
}

// ResolveConfigPath picks the config file: the explicit path, then
// B3NOTIFIER_CONFIG, then config.toml in the user config dir.
// A missing file is not an error; defaults and env apply.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("B3NOTIFIER_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "b3notifier", "config.toml")
	}
	return "b3notifier.toml"
}

// LoadConfig resolves and validates the configuration.
func LoadConfig(configPath string) (*common.Config, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if missing := config.ValidateRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return config, nil
}

// NewApp loads the configuration and builds the App. configPath may be empty.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewAppWithConfig(ctx, config)
}

// NewAppWithConfig builds the App from a loaded configuration and restores
// any session already in the store.
func NewAppWithConfig(ctx context.Context, config *common.Config) (*App, error) {
	startupStart := time.Now()

	if config.IsProduction() && config.Storage.Backend == storage.BackendMemory {
		return nil, fmt.Errorf("storage backend %q cannot share a session between processes; use %q in production", storage.BackendMemory, storage.BackendSQLite)
	}

	logger, logCloser := common.NewLoggerFromConfig(config.Logging)

	store, err := storage.NewTokenStore(logger, &config.Storage)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	client := backend.NewClient(config.API.BaseURL,
		backend.WithLogger(logger),
		backend.WithTimeout(config.API.GetTimeout()),
		backend.WithRateLimit(config.API.RateLimit),
		backend.WithTokenSource(store),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		Store:        store,
		Client:       client,
		Session:      session.NewManager(client, store, logger),
		Watchlist:    watchlist.NewService(client, logger),
		Alerts:       alert.NewService(client, logger),
		Registration: register.NewService(client, logger),
		StartupTime:  startupStart,
		logCloser:    logCloser,
	}

	if err := a.Session.Start(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	logger.Info().
		Str("api", config.API.BaseURL).
		Str("store", config.Storage.Backend).
		Bool("authenticated", a.Session.IsAuthenticated()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// NewUpdatePoller builds a poller for the backend refresh cadence on the
// configured interval.
func (a *App) NewUpdatePoller(onUpdate func(*models.UpdateInfo, error)) *updates.Poller {
	return updates.NewPoller(a.Client, a.Config.Updates.GetInterval(), a.Logger, onUpdate)
}

// Close releases all resources held by the App.
// Shutdown order: stop the session watcher, close the store, flush logs.
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
		a.Session = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close session store")
		}
		a.Store = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
