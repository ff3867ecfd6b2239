package providers_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/providers"
	"github.com/mailsweep/mailsweep/pkg/credstore"
	"github.com/mailsweep/mailsweep/tests/fakes"
)

func newTestBridge(store *fakes.CredStore) *providers.Bridge {
	logger := logging.New(false, true)
	return providers.NewBridge(store, logger)
}

func seedGmailRegistration(store *fakes.CredStore) {
	store.Seed(credstore.KeyGmailClientID, "client-id.apps.googleusercontent.com")
	store.Seed(credstore.KeyGmailClientSecret, "client-secret")
}

func seedGmailSession(store *fakes.CredStore) {
	store.Seed(credstore.KeyGmailRefreshToken, "1//refresh-token")
}

func TestGetStatusNoRegistration(t *testing.T) {
	store := fakes.NewCredStore()
	bridge := newTestBridge(store)
	probe := fakes.NewProbe()
	bridge.RegisterProbe(providers.KindGmail, probe)

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.True(t, status.RequiresSetup)
	assert.False(t, status.IsHealthy)
	assert.False(t, status.IsInitialized)
	assert.Equal(t, providers.StatusSetupRequired, status.Status)
	assert.Zero(t, probe.Calls(), "probe must not run without registration")
}

func TestGetStatusRegistrationWithoutSession(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	bridge := newTestBridge(store)
	probe := fakes.NewProbe()
	bridge.RegisterProbe(providers.KindGmail, probe)

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.False(t, status.RequiresSetup)
	assert.True(t, status.IsInitialized)
	assert.False(t, status.IsHealthy)
	assert.Equal(t, providers.StatusAuthRequired, status.Status)
	assert.Zero(t, probe.Calls(), "probe must not run without a session token")
}

func TestGetStatusProbeSuccess(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	probe := fakes.NewProbe(fakes.ProbeOutcome{Identity: "user@gmail.com"})
	bridge.RegisterProbe(providers.KindGmail, probe)

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.True(t, status.IsHealthy)
	assert.True(t, status.IsInitialized)
	assert.False(t, status.RequiresSetup)
	assert.Equal(t, providers.StatusConnected, status.Status)
	assert.Equal(t, "user@gmail.com", status.IdentityEmail())
	assert.Empty(t, status.ErrorMessage)
	assert.Equal(t, 1, probe.Calls())
}

func TestGetStatusProbeFailure(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	probe := fakes.NewProbe(fakes.ProbeOutcome{Err: fmt.Errorf("dial tcp: connection refused")})
	bridge.RegisterProbe(providers.KindGmail, probe)

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.False(t, status.IsHealthy)
	assert.True(t, status.IsInitialized)
	assert.False(t, status.RequiresSetup)
	assert.Equal(t, providers.StatusConnectionFailed, status.Status)
	assert.Contains(t, status.ErrorMessage, "connection refused")

	kind, ok := status.Details.Get(providers.DetailErrorKind)
	require.True(t, ok)
	assert.Equal(t, string(mserrors.CategoryNetwork), kind)
}

func TestGetStatusProbePanicIsolated(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	probe := fakes.NewProbe()
	probe.PanicWith = "boom"
	bridge.RegisterProbe(providers.KindGmail, probe)

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.False(t, status.IsHealthy)
	assert.Equal(t, providers.StatusConnectionFailed, status.Status)
	assert.Contains(t, status.ErrorMessage, "panicked")
}

func TestGetStatusStorageFailure(t *testing.T) {
	store := fakes.NewCredStore()
	store.FailKey(credstore.KeyGmailClientID)
	bridge := newTestBridge(store)
	bridge.RegisterProbe(providers.KindGmail, fakes.NewProbe())

	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.False(t, status.IsHealthy)
	assert.Equal(t, providers.StatusError, status.Status)
	assert.NotEmpty(t, status.ErrorMessage)
}

func TestGetStatusOpenAIKeyFormatShortCircuit(t *testing.T) {
	store := fakes.NewCredStore()
	store.Seed(credstore.KeyOpenAIAPIKey, "not-a-valid-key")
	bridge := newTestBridge(store)
	probe := fakes.NewProbe()
	bridge.RegisterProbe(providers.KindOpenAI, probe)

	status := bridge.GetStatus(context.Background(), providers.KindOpenAI)

	assert.True(t, status.RequiresSetup)
	assert.False(t, status.IsHealthy)
	assert.False(t, status.IsInitialized)
	assert.Equal(t, providers.StatusSetupRequired, status.Status)
	assert.NotEmpty(t, status.ErrorMessage)
	assert.Zero(t, probe.Calls(), "malformed key must not reach the network")
}

func TestGetStatusOpenAITwoState(t *testing.T) {
	// A well-formed key goes straight from registration to the probe;
	// there is no session axis.
	store := fakes.NewCredStore()
	store.Seed(credstore.KeyOpenAIAPIKey, "sk-proj-abcdefghijklmnop")
	bridge := newTestBridge(store)
	bridge.RegisterProbe(providers.KindOpenAI, fakes.NewProbe(fakes.ProbeOutcome{}))

	status := bridge.GetStatus(context.Background(), providers.KindOpenAI)

	assert.True(t, status.IsHealthy)
	assert.Equal(t, providers.StatusConnected, status.Status)
	assert.Empty(t, status.IdentityEmail())
}

func TestGetStatusLocalStoreCollapsesToProbe(t *testing.T) {
	store := fakes.NewCredStore()
	bridge := newTestBridge(store)
	bridge.RegisterProbe(providers.KindLocalStore, fakes.NewProbe(fakes.ProbeOutcome{}))

	status := bridge.GetStatus(context.Background(), providers.KindLocalStore)

	assert.True(t, status.IsInitialized)
	assert.False(t, status.RequiresSetup)
	assert.True(t, status.IsHealthy)
	assert.Equal(t, providers.StatusConnected, status.Status)
}

func TestGetAllStatusesIsolatesFailures(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	store.Seed(credstore.KeyOpenAIAPIKey, "sk-proj-abcdefghijklmnop")

	bridge := newTestBridge(store)

	gmailProbe := fakes.NewProbe()
	gmailProbe.PanicWith = "gmail exploded"
	bridge.RegisterProbe(providers.KindGmail, gmailProbe)
	bridge.RegisterProbe(providers.KindOpenAI, fakes.NewProbe(fakes.ProbeOutcome{}))
	bridge.RegisterProbe(providers.KindLocalStore, fakes.NewProbe(fakes.ProbeOutcome{}))

	statuses := bridge.GetAllStatuses(context.Background())

	require.Len(t, statuses, 3)
	assert.False(t, statuses["gmail"].IsHealthy)
	assert.True(t, statuses["openai"].IsHealthy)
	assert.True(t, statuses["localstore"].IsHealthy)
}

func TestGetAllStatusesOnlyWiredKinds(t *testing.T) {
	store := fakes.NewCredStore()
	bridge := newTestBridge(store)
	bridge.RegisterProbe(providers.KindLocalStore, fakes.NewProbe(fakes.ProbeOutcome{}))

	statuses := bridge.GetAllStatuses(context.Background())

	require.Len(t, statuses, 1)
	_, ok := statuses["localstore"]
	assert.True(t, ok)
}

func TestGetStatusOfflineReusesProbeOutcome(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	probe := fakes.NewProbe(fakes.ProbeOutcome{Identity: "user@gmail.com"})
	bridge.RegisterProbe(providers.KindGmail, probe)

	full := bridge.GetStatus(context.Background(), providers.KindGmail)
	require.True(t, full.IsHealthy)

	offline := bridge.GetStatusOffline(context.Background(), providers.KindGmail, &full)

	assert.True(t, offline.IsHealthy)
	assert.Equal(t, providers.StatusConnected, offline.Status)
	assert.Equal(t, "user@gmail.com", offline.IdentityEmail())
	assert.Equal(t, 1, probe.Calls(), "offline derivation must not probe")
}

func TestGetStatusOfflineSeesCredentialRemoval(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	bridge.RegisterProbe(providers.KindGmail, fakes.NewProbe(fakes.ProbeOutcome{Identity: "user@gmail.com"}))

	full := bridge.GetStatus(context.Background(), providers.KindGmail)
	require.True(t, full.IsHealthy)

	// Sign-out between ticks: the quick tick must notice without probing.
	require.NoError(t, store.Remove(credstore.KeyGmailRefreshToken))

	offline := bridge.GetStatusOffline(context.Background(), providers.KindGmail, &full)

	assert.False(t, offline.IsHealthy)
	assert.Equal(t, providers.StatusAuthRequired, offline.Status)
}

func TestGetStatusHonorsProbeTimeout(t *testing.T) {
	store := fakes.NewCredStore()
	seedGmailRegistration(store)
	seedGmailSession(store)
	bridge := newTestBridge(store)
	bridge.SetProbeTimeout(20 * time.Millisecond)

	probe := fakes.NewProbe(fakes.ProbeOutcome{Identity: "user@gmail.com"})
	probe.Block = make(chan struct{}) // never released
	bridge.RegisterProbe(providers.KindGmail, probe)

	start := time.Now()
	status := bridge.GetStatus(context.Background(), providers.KindGmail)

	assert.False(t, status.IsHealthy)
	assert.Equal(t, providers.StatusConnectionFailed, status.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRequiresSetupNeverHealthy(t *testing.T) {
	// Invariant check across a spread of credential states.
	states := []func(*fakes.CredStore){
		func(s *fakes.CredStore) {},
		func(s *fakes.CredStore) { seedGmailRegistration(s) },
		func(s *fakes.CredStore) { seedGmailRegistration(s); seedGmailSession(s) },
	}

	for i, seed := range states {
		store := fakes.NewCredStore()
		seed(store)
		bridge := newTestBridge(store)
		bridge.RegisterProbe(providers.KindGmail, fakes.NewProbe(fakes.ProbeOutcome{}))

		status := bridge.GetStatus(context.Background(), providers.KindGmail)
		assert.False(t, status.RequiresSetup && status.IsHealthy,
			"state %d: RequiresSetup and IsHealthy must never coexist", i)
	}
}
