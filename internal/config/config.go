// Package config loads mailsweep.yaml, the optional file controlling provider
// enablement, monitor cadence, and storage backend selection. Every field has
// a sensible default; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

// DefaultFileName is the configuration file looked up in the config directory.
const DefaultFileName = "mailsweep.yaml"

// Config is the full runtime configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Startup   StartupConfig   `yaml:"startup"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig enables a provider and bounds its probe time.
type ProviderConfig struct {
	Enabled   bool `yaml:"enabled"`
	TimeoutMs int  `yaml:"timeout_ms,omitempty"`
}

// Timeout returns the probe timeout, or zero when unset.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// LocalStoreConfig configures the on-disk history database.
type LocalStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Gmail      ProviderConfig   `yaml:"gmail"`
	OpenAI     ProviderConfig   `yaml:"openai"`
	LocalStore LocalStoreConfig `yaml:"localstore"`
}

// MonitorConfig holds health monitor cadences in seconds.
type MonitorConfig struct {
	QuickIntervalSeconds int `yaml:"quick_interval_seconds"`
	FullIntervalSeconds  int `yaml:"full_interval_seconds"`
	StartupDelaySeconds  int `yaml:"startup_delay_seconds"`
}

// QuickInterval returns the quick tick cadence.
func (m MonitorConfig) QuickInterval() time.Duration {
	return time.Duration(m.QuickIntervalSeconds) * time.Second
}

// FullInterval returns the full tick gate.
func (m MonitorConfig) FullInterval() time.Duration {
	return time.Duration(m.FullIntervalSeconds) * time.Second
}

// StartupDelay returns the delay before the first tick.
func (m MonitorConfig) StartupDelay() time.Duration {
	return time.Duration(m.StartupDelaySeconds) * time.Second
}

// StartupConfig bounds the startup sequence.
type StartupConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the overall startup deadline.
func (s StartupConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Storage backends.
const (
	StorageBackendKeyring = "keyring"
	StorageBackendMemory  = "memory"
)

// StorageConfig selects where credentials live.
type StorageConfig struct {
	// Backend is "keyring" (OS credential store) or "memory" (process-local,
	// lost on exit).
	Backend string `yaml:"backend"`

	// Service overrides the keyring service name.
	Service string `yaml:"service,omitempty"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Debug   bool `yaml:"debug"`
	NoColor bool `yaml:"no_color"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Gmail:      ProviderConfig{Enabled: true, TimeoutMs: 10000},
			OpenAI:     ProviderConfig{Enabled: true, TimeoutMs: 10000},
			LocalStore: LocalStoreConfig{Enabled: true},
		},
		Monitor: MonitorConfig{
			QuickIntervalSeconds: 30,
			FullIntervalSeconds:  120,
			StartupDelaySeconds:  2,
		},
		Startup: StartupConfig{TimeoutSeconds: 300},
		Storage: StorageConfig{Backend: StorageBackendKeyring},
	}
}

// DefaultPath returns the per-user location of mailsweep.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(dir, "mailsweep", DefaultFileName), nil
}

// Load reads and validates the file at path. The file must exist; use
// LoadOrDefault for the optional lookup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mserrors.ValidationError{
			Field:      "config",
			Message:    fmt.Sprintf("cannot read %s: %v", path, err),
			Suggestion: "Check the path passed via --config",
		}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, mserrors.ValidationError{
			Field:      "config",
			Message:    fmt.Sprintf("invalid YAML in %s: %v", path, err),
			Suggestion: "Fix the syntax error or delete the file to use defaults",
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults when it
// does not. Any other read or parse failure is still an error.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field ranges and enum values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendKeyring, StorageBackendMemory:
	default:
		return mserrors.ValidationError{
			Field:      "storage.backend",
			Message:    fmt.Sprintf("unknown backend %q", c.Storage.Backend),
			Suggestion: "Use \"keyring\" or \"memory\"",
		}
	}

	if c.Monitor.QuickIntervalSeconds <= 0 {
		return mserrors.ValidationError{
			Field:      "monitor.quick_interval_seconds",
			Message:    "must be positive",
			Suggestion: "Remove the field to use the 30s default",
		}
	}
	if c.Monitor.FullIntervalSeconds < c.Monitor.QuickIntervalSeconds {
		return mserrors.ValidationError{
			Field:      "monitor.full_interval_seconds",
			Message:    "must be at least quick_interval_seconds",
			Suggestion: "Full passes are gated on top of the quick cadence",
		}
	}
	if c.Startup.TimeoutSeconds <= 0 {
		return mserrors.ValidationError{
			Field:      "startup.timeout_seconds",
			Message:    "must be positive",
			Suggestion: "Remove the field to use the 300s default",
		}
	}

	for name, timeoutMs := range map[string]int{
		"providers.gmail.timeout_ms":  c.Providers.Gmail.TimeoutMs,
		"providers.openai.timeout_ms": c.Providers.OpenAI.TimeoutMs,
	} {
		if timeoutMs < 0 {
			return mserrors.ValidationError{
				Field:      name,
				Message:    "must not be negative",
				Suggestion: "Remove the field to use the 10s default",
			}
		}
	}
	return nil
}
