package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.API.BaseURL != "" {
		t.Errorf("API.BaseURL default = %q, want empty", cfg.API.BaseURL)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend default = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
	if cfg.API.GetTimeout() != 30*time.Second {
		t.Errorf("API timeout default = %v, want 30s", cfg.API.GetTimeout())
	}
	if cfg.Updates.GetInterval() != time.Minute {
		t.Errorf("Updates interval default = %v, want 1m", cfg.Updates.GetInterval())
	}
}

func TestConfig_BaseURLEnvOverride(t *testing.T) {
	t.Setenv("B3NOTIFIER_API_BASE_URL", "http://127.0.0.1:8000/api")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.API.BaseURL != "http://127.0.0.1:8000/api" {
		t.Errorf("API.BaseURL = %q after env override", cfg.API.BaseURL)
	}
}

func TestConfig_DataPathEnvOverride(t *testing.T) {
	t.Setenv("B3NOTIFIER_DATA_PATH", "/tmp/b3n")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, filepath.Join("/tmp/b3n", "session.db"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join("/tmp/b3n", "logs", "b3notifier.log"), cfg.Logging.FilePath)
}

func TestConfig_ValidateRequired_MissingBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	missing := cfg.ValidateRequired()
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0], "api.base_url")
}

func TestConfig_ValidateRequired_UnknownBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.BaseURL = "http://localhost"
	cfg.Storage.Backend = "redis"
	missing := cfg.ValidateRequired()
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0], "storage.backend")
}

func TestConfig_ValidateRequired_AllPresent(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.BaseURL = "http://localhost"
	assert.Empty(t, cfg.ValidateRequired())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b3notifier.toml")
	content := `
environment = "production"

[api]
base_url = "https://api.example.com/api/"
rate_limit = 3

[storage]
backend = "Memory"

[updates]
interval = "15s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("B3NOTIFIER_API_TIMEOUT", "5s")

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://api.example.com/api", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 3, cfg.API.RateLimit)
	assert.Equal(t, 5*time.Second, cfg.API.GetTimeout())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 15*time.Second, cfg.Updates.GetInterval())
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\nbase_url="), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
