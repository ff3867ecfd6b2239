package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsweep/mailsweep/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Providers.Gmail.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Providers.Gmail.Timeout())
	assert.Equal(t, 30*time.Second, cfg.Monitor.QuickInterval())
	assert.Equal(t, 120*time.Second, cfg.Monitor.FullInterval())
	assert.Equal(t, 5*time.Minute, cfg.Startup.Timeout())
	assert.Equal(t, config.StorageBackendKeyring, cfg.Storage.Backend)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
monitor:
  quick_interval_seconds: 5
  full_interval_seconds: 60
storage:
  backend: memory
providers:
  openai:
    enabled: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Monitor.QuickInterval())
	assert.Equal(t, 60*time.Second, cfg.Monitor.FullInterval())
	assert.Equal(t, config.StorageBackendMemory, cfg.Storage.Backend)
	assert.False(t, cfg.Providers.OpenAI.Enabled)

	// Untouched sections keep their defaults.
	assert.True(t, cfg.Providers.Gmail.Enabled)
	assert.Equal(t, 300, cfg.Startup.TimeoutSeconds)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "monitor: [not a map")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "s3" }},
		{"zero quick interval", func(c *config.Config) { c.Monitor.QuickIntervalSeconds = 0 }},
		{"full below quick", func(c *config.Config) { c.Monitor.FullIntervalSeconds = 10 }},
		{"zero startup timeout", func(c *config.Config) { c.Startup.TimeoutSeconds = 0 }},
		{"negative probe timeout", func(c *config.Config) { c.Providers.Gmail.TimeoutMs = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
