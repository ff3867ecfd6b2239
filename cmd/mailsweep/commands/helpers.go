// Package commands wires the provider lifecycle core into the mailsweep CLI.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mailsweep/mailsweep/internal/config"
	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/onboarding"
	"github.com/mailsweep/mailsweep/internal/providers"
	"github.com/mailsweep/mailsweep/internal/status"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// RuntimeConfig carries parsed global flags and the loaded file configuration
// into each command.
type RuntimeConfig struct {
	Path   string
	Logger *logging.Logger
	File   *config.Config
}

// stack is the assembled lifecycle core shared by the commands.
type stack struct {
	store      credstore.Store
	bridge     *providers.Bridge
	statuses   *status.Service
	onboarding *onboarding.Service
	localstore *providers.LocalStoreProbe
}

// buildStack assembles credential storage, the provider bridge, and the
// status service according to the file configuration.
func buildStack(cfg *RuntimeConfig) (*stack, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	bridge := providers.NewBridge(store, cfg.Logger)
	if timeout := probeTimeout(cfg.File); timeout > 0 {
		bridge.SetProbeTimeout(timeout)
	}

	var tracked []providers.Kind
	var local *providers.LocalStoreProbe

	if cfg.File.Providers.Gmail.Enabled {
		bridge.RegisterProbe(providers.KindGmail, providers.NewGmailProbe(store))
		tracked = append(tracked, providers.KindGmail)
	}
	if cfg.File.Providers.OpenAI.Enabled {
		bridge.RegisterProbe(providers.KindOpenAI, providers.NewOpenAIProbe(store))
		tracked = append(tracked, providers.KindOpenAI)
	}
	if cfg.File.Providers.LocalStore.Enabled {
		path, err := localStorePath(cfg.File)
		if err != nil {
			return nil, err
		}
		local = providers.NewLocalStoreProbe(path)
		bridge.RegisterProbe(providers.KindLocalStore, local)
		tracked = append(tracked, providers.KindLocalStore)
	}

	statuses := status.NewService(bridge, cfg.Logger)
	statuses.Track(tracked...)

	return &stack{
		store:      store,
		bridge:     bridge,
		statuses:   statuses,
		onboarding: onboarding.NewService(store, statuses, cfg.Logger),
		localstore: local,
	}, nil
}

// close releases stack resources. Safe on a partially built stack.
func (s *stack) close() {
	if s.onboarding != nil {
		s.onboarding.Close()
	}
	if s.localstore != nil {
		_ = s.localstore.Close()
	}
}

func buildStore(cfg *RuntimeConfig) (credstore.Store, error) {
	switch cfg.File.Storage.Backend {
	case config.StorageBackendMemory:
		cfg.Logger.Warn("Using in-memory credential storage; credentials are lost on exit")
		return credstore.NewMemoryStore(), nil
	case config.StorageBackendKeyring, "":
		service := cfg.File.Storage.Service
		if service == "" {
			service = credstore.DefaultService
		}
		return credstore.NewKeyringStore(service), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.File.Storage.Backend)
	}
}

// probeTimeout picks the widest configured probe timeout so no enabled
// provider is cut short.
func probeTimeout(cfg *config.Config) time.Duration {
	gmail := cfg.Providers.Gmail.Timeout()
	openai := cfg.Providers.OpenAI.Timeout()
	if gmail > openai {
		return gmail
	}
	return openai
}

func localStorePath(cfg *config.Config) (string, error) {
	if cfg.Providers.LocalStore.Path != "" {
		return cfg.Providers.LocalStore.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving local store path: %w", err)
	}
	base := filepath.Join(dir, "mailsweep")
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(base, "history.db"), nil
}
