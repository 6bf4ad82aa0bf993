package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/b3notifier/internal/clients/backend/backendtest"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
)

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	content := `environment = "test"

[api]
base_url = "` + baseURL + `"
timeout = "5s"
rate_limit = 0

[storage]
backend = "sqlite"
path = "` + filepath.ToSlash(filepath.Join(dir, "session.db")) + `"
watch_interval = "50ms"

[logging]
level = "error"
outputs = []
`
	path := filepath.Join(dir, "b3notifier.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewApp_InitializesAllServices(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()

	a, err := NewApp(context.Background(), writeTestConfig(t, fake.URL))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Client)
	assert.NotNil(t, a.Session)
	assert.NotNil(t, a.Watchlist)
	assert.NotNil(t, a.Alerts)
	assert.NotNil(t, a.Registration)
	assert.False(t, a.Session.IsAuthenticated())
	assert.Equal(t, "test", a.Config.Environment)
}

func TestNewApp_MissingBaseURL(t *testing.T) {
	t.Setenv("B3NOTIFIER_API_BASE_URL", "")
	_, err := NewApp(context.Background(), writeTestConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}

func TestNewApp_RestoresSessionAcrossInstances(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "correct-horse")
	fake.SetAssets(backendtest.Asset{Name: "ITUB4.SA", Periodicity: 15, CurrentPrice: "29.00", LowerLimit: "25.00", UpperLimit: "30.00"})

	path := writeTestConfig(t, fake.URL)
	ctx := context.Background()

	first, err := NewApp(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Session.Login(ctx, models.Credentials{Username: "ana", Password: "correct-horse"}))
	first.Close()

	second, err := NewApp(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, second.Session.IsAuthenticated())
	profile, err := second.Session.AwaitReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)

	assets, err := second.Watchlist.List(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "ITUB4.SA", assets[0].Name)
}

func TestNewApp_PollerUsesConfiguredInterval(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()
	fake.AddUser("ana", "ana@example.com", "correct-horse")

	cfg := common.NewDefaultConfig()
	cfg.API.BaseURL = fake.URL
	cfg.Storage.Backend = "memory"
	cfg.Logging.Outputs = nil
	cfg.Updates.Interval = "20ms"

	a, err := NewAppWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Session.Login(ctx, models.Credentials{Username: "ana", Password: "correct-horse"}))

	got := make(chan *models.UpdateInfo, 4)
	go a.NewUpdatePoller(func(info *models.UpdateInfo, err error) {
		if err == nil {
			select {
			case got <- info:
			default:
			}
		}
	}).Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case info := <-got:
			assert.Equal(t, 2025, info.LastUpdate.Year())
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not deliver")
		}
	}
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	fake := backendtest.New()
	defer fake.Close()

	a, err := NewApp(context.Background(), writeTestConfig(t, fake.URL))
	require.NoError(t, err)
	a.Close()
	a.Close()
}

func TestNewApp_ProductionRejectsMemoryStore(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Environment = "production"
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Storage.Backend = "memory"
	cfg.Logging.Outputs = nil

	_, err := NewAppWithConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}
