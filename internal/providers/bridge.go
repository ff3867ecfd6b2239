package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// Probe is the live-connectivity collaborator for one provider. A probe must
// be side-effect free and bounded in latency; the bridge enforces a timeout
// on top. The returned identity is the authenticated account email when the
// provider can resolve one, otherwise "".
type Probe interface {
	TestConnectivity(ctx context.Context) (identity string, err error)
}

// ProbeMode selects whether a derivation may touch the network.
type ProbeMode int

const (
	// ProbeFull runs the live connectivity probe.
	ProbeFull ProbeMode = iota

	// ProbeOffline re-derives the credential axes from the store only and
	// carries forward the previous probe outcome. Used by the monitor's
	// quick tick.
	ProbeOffline
)

// kindSpec describes how the credential axes map onto stored keys for one
// provider kind. Dispatch is by Kind through this table; the bridge never
// type-switches on probe implementations.
type kindSpec struct {
	displayName string

	// registrationKeys must all be present for axis 1 to pass.
	registrationKeys []string

	// sessionKeys must all be present for axis 2 to pass. Ignored when
	// hasSession is false (two-state providers such as the local datastore).
	sessionKeys []string
	hasSession  bool

	// validateRegistration, when set, checks stored registration material
	// before any network call. A failure short-circuits to Setup Required.
	validateRegistration func(values map[string]string) error
}

func specFor(kind Kind) (kindSpec, bool) {
	switch kind {
	case KindGmail:
		return kindSpec{
			displayName:      "Gmail",
			registrationKeys: []string{credstore.KeyGmailClientID, credstore.KeyGmailClientSecret},
			sessionKeys:      []string{credstore.KeyGmailRefreshToken},
			hasSession:       true,
		}, true
	case KindOpenAI:
		return kindSpec{
			displayName:      "OpenAI",
			registrationKeys: []string{credstore.KeyOpenAIAPIKey},
			hasSession:       false,
			validateRegistration: func(values map[string]string) error {
				return ValidateOpenAIKeyFormat(values[credstore.KeyOpenAIAPIKey])
			},
		}, true
	case KindLocalStore:
		return kindSpec{
			displayName: "Local Store",
			hasSession:  false,
		}, true
	default:
		return kindSpec{}, false
	}
}

// Bridge translates per-provider credential and connectivity state into
// normalized statuses. All methods are safe for concurrent use.
type Bridge struct {
	store        credstore.Store
	logger       *logging.Logger
	probeTimeout time.Duration

	mu     sync.RWMutex
	probes map[Kind]Probe
}

// DefaultProbeTimeout bounds a single connectivity probe.
const DefaultProbeTimeout = 10 * time.Second

// NewBridge creates a bridge over the given credential store. Probes are
// wired separately with RegisterProbe; kinds without a probe are considered
// unwired and are skipped by bulk operations.
func NewBridge(store credstore.Store, logger *logging.Logger) *Bridge {
	return &Bridge{
		store:        store,
		logger:       logger,
		probeTimeout: DefaultProbeTimeout,
		probes:       make(map[Kind]Probe),
	}
}

// SetProbeTimeout overrides the per-probe timeout.
func (b *Bridge) SetProbeTimeout(d time.Duration) {
	b.mu.Lock()
	b.probeTimeout = d
	b.mu.Unlock()
}

// RegisterProbe wires the connectivity collaborator for a provider kind.
func (b *Bridge) RegisterProbe(kind Kind, probe Probe) {
	b.mu.Lock()
	b.probes[kind] = probe
	b.mu.Unlock()
	b.logger.Debug("Registered probe for provider: %s", kind)
}

// Has reports whether a probe is wired for the kind.
func (b *Bridge) Has(kind Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.probes[kind]
	return ok
}

// Kinds returns the wired provider kinds in stable order.
func (b *Bridge) Kinds() []Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Kind, 0, len(b.probes))
	for _, kind := range []Kind{KindGmail, KindOpenAI, KindLocalStore} {
		if _, ok := b.probes[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// GetStatus derives the current status for one provider. It never returns an
// error: storage failures, probe failures, and panics all fold into the
// returned status.
func (b *Bridge) GetStatus(ctx context.Context, kind Kind) ProviderStatus {
	return b.derive(ctx, kind, ProbeFull, nil)
}

// GetStatusOffline re-derives the credential axes without touching the
// network, carrying forward the probe outcome from previous. When previous
// holds no probe outcome the derivation promotes itself to a full probe so
// the cache never reports connectivity it has not observed.
func (b *Bridge) GetStatusOffline(ctx context.Context, kind Kind, previous *ProviderStatus) ProviderStatus {
	return b.derive(ctx, kind, ProbeOffline, previous)
}

// GetAllStatuses derives statuses for every wired provider concurrently.
// One provider's failure or panic never aborts its siblings.
func (b *Bridge) GetAllStatuses(ctx context.Context) map[string]ProviderStatus {
	kinds := b.Kinds()

	type entry struct {
		name   string
		status ProviderStatus
	}
	results := make(chan entry, len(kinds))

	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind Kind) {
			defer wg.Done()
			results <- entry{name: string(kind), status: b.GetStatus(ctx, kind)}
		}(kind)
	}
	wg.Wait()
	close(results)

	statuses := make(map[string]ProviderStatus, len(kinds))
	for e := range results {
		statuses[e.name] = e.status
	}
	return statuses
}

func (b *Bridge) derive(ctx context.Context, kind Kind, mode ProbeMode, previous *ProviderStatus) (status ProviderStatus) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Status derivation panicked for %s: %v", kind, r)
			status = b.errorStatus(kind, fmt.Errorf("status derivation panicked: %v", r))
		}
	}()

	spec, ok := specFor(kind)
	if !ok {
		return b.errorStatus(kind, mserrors.ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider kind %q", kind)})
	}

	status = ProviderStatus{
		Name:      string(kind),
		LastCheck: time.Now(),
		Details:   NewDetails(),
	}
	status.Details.Set("display_name", spec.displayName)

	// Axis 1: client registration.
	registration := make(map[string]string, len(spec.registrationKeys))
	for _, key := range spec.registrationKeys {
		value, found, err := b.store.Retrieve(key)
		if err != nil {
			return b.errorStatus(kind, err)
		}
		if !found || value == "" {
			status.RequiresSetup = true
			status.IsHealthy = false
			status.IsInitialized = false
			status.Status = StatusSetupRequired
			return status
		}
		registration[key] = value
	}

	// Malformed registration material counts as "not set up"; it must be
	// caught before any network call is attempted.
	if spec.validateRegistration != nil {
		if err := spec.validateRegistration(registration); err != nil {
			status.RequiresSetup = true
			status.IsHealthy = false
			status.IsInitialized = false
			status.Status = StatusSetupRequired
			status.ErrorMessage = err.Error()
			status.Details.Set(DetailErrorKind, string(mserrors.CategoryValidation))
			return status
		}
	}

	// Axis 2: user session.
	if spec.hasSession {
		for _, key := range spec.sessionKeys {
			value, found, err := b.store.Retrieve(key)
			if err != nil {
				return b.errorStatus(kind, err)
			}
			if !found || value == "" {
				status.RequiresSetup = false
				status.IsInitialized = true
				status.IsHealthy = false
				status.Status = StatusAuthRequired
				return status
			}
		}
	}

	status.RequiresSetup = false
	status.IsInitialized = true

	// Axis 3: live connectivity.
	if mode == ProbeOffline && previous != nil && hasProbeOutcome(*previous) {
		status.IsHealthy = previous.IsHealthy
		status.Status = previous.Status
		status.ErrorMessage = previous.ErrorMessage
		if email := previous.IdentityEmail(); email != "" {
			status.Details.Set(DetailAccountEmail, email)
		}
		return status
	}

	b.mu.RLock()
	probe := b.probes[kind]
	timeout := b.probeTimeout
	b.mu.RUnlock()

	if probe == nil {
		status.IsHealthy = false
		status.Status = StatusConnectionFailed
		status.ErrorMessage = "connectivity probe not configured"
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	identity, err := runProbe(probeCtx, probe)
	if err != nil {
		status.IsHealthy = false
		status.Status = StatusConnectionFailed
		status.ErrorMessage = err.Error()
		status.Details.Set(DetailErrorKind, string(mserrors.Classify(err)))
		return status
	}

	status.IsHealthy = true
	status.Status = StatusConnected
	if identity != "" {
		status.Details.Set(DetailAccountEmail, identity)
	}
	return status
}

// runProbe executes a probe with panic isolation.
func runProbe(ctx context.Context, probe Probe) (identity string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return probe.TestConnectivity(ctx)
}

// hasProbeOutcome reports whether a status carries a real connectivity
// observation that an offline derivation may legitimately reuse.
func hasProbeOutcome(s ProviderStatus) bool {
	return s.Status == StatusConnected || s.Status == StatusConnectionFailed
}

func (b *Bridge) errorStatus(kind Kind, err error) ProviderStatus {
	details := NewDetails()
	details.Set(DetailErrorKind, string(mserrors.Classify(err)))
	return ProviderStatus{
		Name:          string(kind),
		IsHealthy:     false,
		IsInitialized: false,
		RequiresSetup: false,
		Status:        StatusError,
		ErrorMessage:  err.Error(),
		LastCheck:     time.Now(),
		Details:       details,
	}
}
