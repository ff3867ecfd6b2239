// Package status caches the latest normalized status per provider, detects
// real changes between refresh cycles, and notifies subscribers.
package status

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/providers"
)

// ChangeHandler receives a status-change notification. previous is nil for
// the first status ever observed for a provider.
//
// Handlers run synchronously on the goroutine that completed the refresh and
// must not block; long-running work belongs on the handler's own goroutine.
type ChangeHandler func(name string, current providers.ProviderStatus, previous *providers.ProviderStatus)

// Service owns the status cache. Refreshes of distinct providers run
// concurrently in the bridge; the cache write-back is serialized behind one
// lock so AreAllHealthy always answers from a single coherent snapshot.
type Service struct {
	bridge *providers.Bridge
	logger *logging.Logger

	mu          sync.Mutex
	tracked     []providers.Kind
	cache       map[string]providers.ProviderStatus
	subscribers map[string]ChangeHandler
}

// NewService creates a status service over the given bridge.
func NewService(bridge *providers.Bridge, logger *logging.Logger) *Service {
	return &Service{
		bridge:      bridge,
		logger:      logger,
		cache:       make(map[string]providers.ProviderStatus),
		subscribers: make(map[string]ChangeHandler),
	}
}

// Track adds provider kinds to the refreshed set. Tracked kinds whose probe
// is not yet wired into the bridge are skipped at refresh time, not errored;
// they join the cache once their probe is registered.
func (s *Service) Track(kinds ...providers.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range kinds {
		if s.isTracked(kind) {
			continue
		}
		s.tracked = append(s.tracked, kind)
	}
}

func (s *Service) isTracked(kind providers.Kind) bool {
	for _, k := range s.tracked {
		if k == kind {
			return true
		}
	}
	return false
}

// RefreshAll re-derives every tracked, wired provider with live probes and
// swaps the results into the cache as one snapshot.
func (s *Service) RefreshAll(ctx context.Context) {
	s.refresh(ctx, providers.ProbeFull)
}

// RefreshCached re-derives the credential axes only, reusing each provider's
// previous probe outcome. Used by the monitor's quick tick.
func (s *Service) RefreshCached(ctx context.Context) {
	s.refresh(ctx, providers.ProbeOffline)
}

func (s *Service) refresh(ctx context.Context, mode providers.ProbeMode) {
	s.mu.Lock()
	kinds := make([]providers.Kind, 0, len(s.tracked))
	previous := make(map[providers.Kind]*providers.ProviderStatus, len(s.tracked))
	for _, kind := range s.tracked {
		if !s.bridge.Has(kind) {
			s.logger.Debug("Skipping refresh for unwired provider: %s", kind)
			continue
		}
		kinds = append(kinds, kind)
		if cached, ok := s.cache[string(kind)]; ok {
			copied := cached
			previous[kind] = &copied
		}
	}
	s.mu.Unlock()

	if len(kinds) == 0 {
		return
	}

	// Fan out: one derivation per provider, failures isolated in the bridge.
	type result struct {
		kind   providers.Kind
		status providers.ProviderStatus
	}
	results := make(chan result, len(kinds))
	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind providers.Kind) {
			defer wg.Done()
			var st providers.ProviderStatus
			if mode == providers.ProbeOffline {
				st = s.bridge.GetStatusOffline(ctx, kind, previous[kind])
			} else {
				st = s.bridge.GetStatus(ctx, kind)
			}
			results <- result{kind: kind, status: st}
		}(kind)
	}
	wg.Wait()
	close(results)

	// Fan in: diff and swap the whole snapshot under one lock.
	type change struct {
		name     string
		current  providers.ProviderStatus
		previous *providers.ProviderStatus
	}
	var changes []change

	s.mu.Lock()
	for r := range results {
		name := string(r.kind)
		old, existed := s.cache[name]
		s.cache[name] = r.status
		if !existed {
			changes = append(changes, change{name: name, current: r.status})
			continue
		}
		if !old.Same(r.status) {
			copied := old
			changes = append(changes, change{name: name, current: r.status, previous: &copied})
		}
	}
	handlers := make([]ChangeHandler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	// Notifications fire outside the lock, synchronously on this goroutine.
	for _, c := range changes {
		s.logger.Debug("Provider status changed: %s → %s", c.name, c.current.Status)
		for _, h := range handlers {
			h(c.name, c.current, c.previous)
		}
	}
}

// GetAll returns a copy of the cached statuses.
func (s *Service) GetAll() map[string]providers.ProviderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]providers.ProviderStatus, len(s.cache))
	for name, st := range s.cache {
		out[name] = st
	}
	return out
}

// Get returns the cached status for one provider.
func (s *Service) Get(name string) (providers.ProviderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.cache[name]
	return st, ok
}

// AreAllHealthy reports whether every tracked provider is healthy in the
// current snapshot. A provider that has never been refreshed counts as
// unhealthy; an empty cache is never "all healthy".
func (s *Service) AreAllHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tracked) == 0 || len(s.cache) == 0 {
		return false
	}
	for _, kind := range s.tracked {
		st, ok := s.cache[string(kind)]
		if !ok || !st.IsHealthy {
			return false
		}
	}
	return true
}

// Subscribe registers a change handler and returns a token for Unsubscribe.
func (s *Service) Subscribe(h ChangeHandler) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.subscribers[id] = h
	s.mu.Unlock()
	return id
}

// Unsubscribe removes a previously registered handler.
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}
