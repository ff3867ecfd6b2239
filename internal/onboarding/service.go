// Package onboarding tracks first-run progress. Only user-driven facts are
// persisted (welcome acknowledged, which providers the user finished setting
// up); the phase itself is recomputed from those facts plus live provider
// health, so stored state can never contradict reality.
package onboarding

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/providers"
	"github.com/mailsweep/mailsweep/internal/status"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// Phase is the derived onboarding phase.
type Phase string

const (
	PhaseWelcome       Phase = "welcome"
	PhaseProviderSetup Phase = "provider_setup"
	PhaseCompleted     Phase = "completed"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWelcome, PhaseProviderSetup, PhaseCompleted:
		return true
	}
	return false
}

// persistedState is the stored blob. It carries only what the user did, never
// conclusions drawn from provider health.
type persistedState struct {
	IsWelcomeComplete     bool            `json:"is_welcome_complete"`
	CurrentPhase          Phase           `json:"current_phase"`
	ProviderSetupComplete map[string]bool `json:"provider_setup_complete"`
	LastUpdated           time.Time       `json:"last_updated"`
}

func emptyPersisted() persistedState {
	return persistedState{
		CurrentPhase:          PhaseWelcome,
		ProviderSetupComplete: make(map[string]bool),
	}
}

// State is the derived onboarding view handed to callers.
type State struct {
	CurrentPhase              Phase
	IsWelcomeComplete         bool
	ProviderSetupComplete     map[string]bool
	HasAnyWorkingProvider     bool
	HasRequiredProvidersSetup bool
	IsComplete                bool
	CanAccessMainApplication  bool
	LastUpdated               time.Time
}

// ProviderInfo describes a provider on the onboarding screens.
type ProviderInfo struct {
	Name            string
	DisplayName     string
	Description     string
	SetupComplexity string
	Required        bool
}

// Providers returns the onboarding provider catalog in display order.
func Providers() []ProviderInfo {
	return []ProviderInfo{
		{
			Name:            string(providers.KindGmail),
			DisplayName:     "Gmail",
			Description:     "Connect your Gmail account so mail can be scanned and cleaned",
			SetupComplexity: "guided sign-in",
			Required:        true,
		},
		{
			Name:            string(providers.KindOpenAI),
			DisplayName:     "OpenAI",
			Description:     "An OpenAI API key powers email classification",
			SetupComplexity: "paste a key",
			Required:        true,
		},
		{
			Name:            string(providers.KindLocalStore),
			DisplayName:     "Local database",
			Description:     "Stores cleanup history on this machine",
			SetupComplexity: "automatic",
			Required:        false,
		},
	}
}

func requiredProviders() []string {
	var out []string
	for _, p := range Providers() {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// StateHandler receives the derived state after it changes.
type StateHandler func(State)

// cacheTTL bounds how long a derived state is served without recomputation.
const cacheTTL = 5 * time.Minute

// Service derives onboarding state on demand and caches the result. Any
// mutation or provider status change invalidates the cache.
type Service struct {
	store    credstore.Store
	statuses *status.Service
	logger   *logging.Logger

	mu       sync.Mutex
	cached   *State
	cachedAt time.Time
	handlers []StateHandler
	subID    string
	closed   bool
}

// NewService creates the onboarding service and subscribes it to provider
// status changes so health transitions refresh the derived phase.
func NewService(store credstore.Store, statuses *status.Service, logger *logging.Logger) *Service {
	s := &Service{
		store:    store,
		statuses: statuses,
		logger:   logger,
	}
	s.subID = statuses.Subscribe(func(name string, current providers.ProviderStatus, previous *providers.ProviderStatus) {
		s.invalidate()
		s.notifyCurrent()
	})
	return s
}

// Close detaches the service from provider status changes.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.statuses.Unsubscribe(s.subID)
}

// OnStateChanged registers a handler for derived state changes. Handlers fire
// synchronously after each mutation and after provider status transitions.
func (s *Service) OnStateChanged(h StateHandler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// State returns the derived onboarding state, recomputing when the cache has
// expired or been invalidated.
func (s *Service) State() (State, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.cachedAt) < cacheTTL {
		cached := *s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	persisted, err := s.load()
	if err != nil {
		return State{}, err
	}
	derived := recompute(persisted, s.statuses.GetAll())

	s.mu.Lock()
	s.cached = &derived
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return derived, nil
}

// IsComplete reports whether onboarding has finished.
func (s *Service) IsComplete() bool {
	state, err := s.State()
	if err != nil {
		s.logger.Warn("Onboarding state unavailable: %v", err)
		return false
	}
	return state.IsComplete
}

// CanAccessMainApplication reports whether the main window may open: at least
// one healthy provider, or onboarding fully done.
func (s *Service) CanAccessMainApplication() bool {
	state, err := s.State()
	if err != nil {
		s.logger.Warn("Onboarding state unavailable: %v", err)
		return false
	}
	return state.CanAccessMainApplication
}

// MarkWelcomeComplete records that the user finished the welcome screen.
func (s *Service) MarkWelcomeComplete() error {
	return s.mutate(func(p *persistedState) error {
		p.IsWelcomeComplete = true
		if p.CurrentPhase == PhaseWelcome {
			p.CurrentPhase = PhaseProviderSetup
		}
		return nil
	})
}

// MarkProviderSetupComplete records that the user finished setting up the
// named provider. The phase only advances once the provider is also healthy.
func (s *Service) MarkProviderSetupComplete(name string) error {
	if !knownProvider(name) {
		return fmt.Errorf("unknown onboarding provider %q", name)
	}
	return s.mutate(func(p *persistedState) error {
		p.ProviderSetupComplete[name] = true
		return nil
	})
}

// UpdatePhase stores an explicit phase override. Moving past welcome implies
// the welcome screen was acknowledged.
func (s *Service) UpdatePhase(phase Phase) error {
	if !phase.Valid() {
		return fmt.Errorf("invalid onboarding phase %q", phase)
	}
	return s.mutate(func(p *persistedState) error {
		p.CurrentPhase = phase
		if phase != PhaseWelcome {
			p.IsWelcomeComplete = true
		}
		return nil
	})
}

// Reset discards all onboarding progress.
func (s *Service) Reset() error {
	if err := s.store.Remove(credstore.KeyOnboardingState); err != nil {
		return err
	}
	s.logger.Info("Onboarding state reset")
	s.invalidate()
	s.notifyCurrent()
	return nil
}

func (s *Service) mutate(apply func(*persistedState) error) error {
	persisted, err := s.load()
	if err != nil {
		return err
	}
	if err := apply(&persisted); err != nil {
		return err
	}
	persisted.LastUpdated = time.Now().UTC()

	if err := s.save(persisted); err != nil {
		return err
	}
	s.invalidate()
	s.notifyCurrent()
	return nil
}

func (s *Service) load() (persistedState, error) {
	raw, found, err := s.store.Retrieve(credstore.KeyOnboardingState)
	if err != nil {
		return persistedState{}, err
	}
	if !found {
		return emptyPersisted(), nil
	}

	var p persistedState
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// A corrupt blob means starting over, not wedging the app.
		s.logger.Warn("Onboarding state corrupt, starting fresh: %v", err)
		return emptyPersisted(), nil
	}
	if p.ProviderSetupComplete == nil {
		p.ProviderSetupComplete = make(map[string]bool)
	}
	if !p.CurrentPhase.Valid() {
		p.CurrentPhase = PhaseWelcome
	}
	return p, nil
}

func (s *Service) save(p persistedState) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding onboarding state: %w", err)
	}
	return s.store.Store(credstore.KeyOnboardingState, string(raw))
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Service) notifyCurrent() {
	s.mu.Lock()
	if len(s.handlers) == 0 {
		s.mu.Unlock()
		return
	}
	handlers := make([]StateHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	state, err := s.State()
	if err != nil {
		s.logger.Warn("Skipping onboarding notification: %v", err)
		return
	}
	for _, h := range handlers {
		h(state)
	}
}

// recompute derives the effective state from stored facts and live provider
// health. Completion requires every required provider to be both acknowledged
// by the user and currently healthy; a provider that later degrades pulls the
// phase back to provider setup on the next read.
func recompute(p persistedState, statuses map[string]providers.ProviderStatus) State {
	acks := make(map[string]bool, len(p.ProviderSetupComplete))
	for name, done := range p.ProviderSetupComplete {
		acks[name] = done
	}

	required := requiredProviders()
	requiredReady := len(required) > 0
	for _, name := range required {
		st, ok := statuses[name]
		if !acks[name] || !ok || !st.IsHealthy {
			requiredReady = false
			break
		}
	}

	anyHealthy := false
	for _, st := range statuses {
		if st.IsHealthy {
			anyHealthy = true
			break
		}
	}

	phase := PhaseWelcome
	if p.IsWelcomeComplete {
		phase = PhaseProviderSetup
		if requiredReady {
			phase = PhaseCompleted
		}
	}

	isComplete := phase == PhaseCompleted
	return State{
		CurrentPhase:              phase,
		IsWelcomeComplete:         p.IsWelcomeComplete,
		ProviderSetupComplete:     acks,
		HasAnyWorkingProvider:     anyHealthy,
		HasRequiredProvidersSetup: requiredReady,
		IsComplete:                isComplete,
		CanAccessMainApplication:  anyHealthy || isComplete,
		LastUpdated:               p.LastUpdated,
	}
}

func knownProvider(name string) bool {
	for _, p := range Providers() {
		if p.Name == name {
			return true
		}
	}
	return false
}
