package startup_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/providers"
	"github.com/mailsweep/mailsweep/internal/startup"
	"github.com/mailsweep/mailsweep/internal/status"
	"github.com/mailsweep/mailsweep/pkg/credstore"
	"github.com/mailsweep/mailsweep/tests/fakes"
	"github.com/mailsweep/mailsweep/tests/testutil"
)

type orchestratorFixture struct {
	store *fakes.CredStore
	probe *fakes.Probe
	orch  *startup.Orchestrator
	logs  *testutil.LogCapture
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	store := fakes.NewCredStore()
	store.Seed(credstore.KeyOpenAIAPIKey, "sk-proj-abcdefghijklmnop")
	logs := testutil.NewLogCapture(t)
	logger := logs.Logger

	bridge := providers.NewBridge(store, logger)
	probe := fakes.NewProbe(fakes.ProbeOutcome{})
	bridge.RegisterProbe(providers.KindOpenAI, probe)

	svc := status.NewService(bridge, logger)
	svc.Track(providers.KindOpenAI)

	return &orchestratorFixture{
		store: store,
		probe: probe,
		orch:  startup.NewOrchestrator(store, bridge, svc, logger),
		logs:  logs,
	}
}

type progressRecorder struct {
	mu    sync.Mutex
	steps []startup.Step
}

func (r *progressRecorder) handler(p startup.Progress) {
	r.mu.Lock()
	r.steps = append(r.steps, p.CurrentStep)
	r.mu.Unlock()
}

func (r *progressRecorder) all() []startup.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]startup.Step, len(r.steps))
	copy(out, r.steps)
	return out
}

func TestExecuteSuccessPath(t *testing.T) {
	fx := newOrchestratorFixture(t)
	rec := &progressRecorder{}
	fx.orch.OnProgress(rec.handler)

	result := fx.orch.Execute(context.Background())

	require.True(t, result.IsSuccess)
	assert.Equal(t, startup.FailureNone, result.FailureReason)
	assert.Equal(t, startup.TotalSteps, result.CompletedSteps)
	assert.Equal(t, startup.TotalSteps, result.TotalSteps)
	assert.Greater(t, result.Elapsed, time.Duration(0))

	assert.Equal(t, []startup.Step{
		startup.StepInitializing,
		startup.StepInitializingStorage,
		startup.StepInitializingSecurity,
		startup.StepInitializingEmailProvider,
		startup.StepInitializingLLMProvider,
		startup.StepCheckingProviderHealth,
		startup.StepReady,
	}, rec.all())

	progress := fx.orch.Progress()
	assert.True(t, progress.IsComplete)
	assert.False(t, progress.HasError)
	assert.InDelta(t, 100.0, progress.Percent(), 0.001)
	fx.logs.AssertContains(t, "Startup complete")
}

func TestExecuteSucceedsWithZeroHealthyProviders(t *testing.T) {
	// No secrets, no probes: every provider needs setup, none is healthy.
	store := fakes.NewCredStore()
	logger := logging.New(false, true)
	bridge := providers.NewBridge(store, logger)
	svc := status.NewService(bridge, logger)
	svc.Track(providers.KindGmail, providers.KindOpenAI)

	orch := startup.NewOrchestrator(store, bridge, svc, logger)
	result := orch.Execute(context.Background())

	assert.True(t, result.IsSuccess, "provider health never fails startup")
	assert.Equal(t, startup.TotalSteps, result.CompletedSteps)
}

func TestExecuteStorageFailureIsFatal(t *testing.T) {
	fx := newOrchestratorFixture(t)
	fx.store.FailAll = true
	rec := &progressRecorder{}
	fx.orch.OnProgress(rec.handler)

	result := fx.orch.Execute(context.Background())

	require.False(t, result.IsSuccess)
	assert.Equal(t, startup.FailureStorageInit, result.FailureReason)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Less(t, result.CompletedSteps, result.TotalSteps)

	steps := rec.all()
	require.NotEmpty(t, steps)
	assert.Equal(t, startup.StepFailed, steps[len(steps)-1])
	assert.NotContains(t, steps, startup.StepInitializingSecurity,
		"a fatal storage failure must halt the sequence")

	progress := fx.orch.Progress()
	assert.True(t, progress.HasError)
	assert.False(t, progress.IsComplete)
	fx.logs.AssertContains(t, "Startup failed")
}

func TestExecuteIsOneShot(t *testing.T) {
	fx := newOrchestratorFixture(t)

	first := fx.orch.Execute(context.Background())
	require.True(t, first.IsSuccess)
	calls := fx.probe.Calls()

	second := fx.orch.Execute(context.Background())
	assert.Equal(t, first, second, "re-execution returns the recorded result")
	assert.Equal(t, calls, fx.probe.Calls(), "re-execution runs no steps")
}

func TestExecuteCallerCancellation(t *testing.T) {
	fx := newOrchestratorFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := fx.orch.Execute(ctx)

	require.False(t, result.IsSuccess)
	assert.Equal(t, startup.FailureCancelled, result.FailureReason)
}

func TestExecuteOverallTimeout(t *testing.T) {
	fx := newOrchestratorFixture(t)
	fx.orch.SetTimeout(time.Nanosecond)

	result := fx.orch.Execute(context.Background())

	require.False(t, result.IsSuccess)
	assert.Equal(t, startup.FailureTimeout, result.FailureReason)
}
