// Package startup sequences subsystem initialization at boot: storage and
// security first (fatal on failure), then provider wiring (lenient), ending
// with a full provider health snapshot.
package startup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/providers"
	"github.com/mailsweep/mailsweep/internal/status"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// Step is one phase of the startup sequence, in execution order.
type Step int

const (
	StepInitializing Step = iota
	StepInitializingStorage
	StepInitializingSecurity
	StepInitializingEmailProvider
	StepInitializingLLMProvider
	StepCheckingProviderHealth
	StepReady
	StepFailed
)

// TotalSteps is the number of steps that count toward progress. Ready and
// Failed are terminal markers, not work.
const TotalSteps = 6

func (s Step) String() string {
	switch s {
	case StepInitializing:
		return "Initializing"
	case StepInitializingStorage:
		return "Initializing storage"
	case StepInitializingSecurity:
		return "Initializing security"
	case StepInitializingEmailProvider:
		return "Initializing email provider"
	case StepInitializingLLMProvider:
		return "Initializing LLM provider"
	case StepCheckingProviderHealth:
		return "Checking provider health"
	case StepReady:
		return "Ready"
	case StepFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Progress is the transient, in-memory view of the sequence. It is replaced
// wholesale on every transition and never persisted.
type Progress struct {
	CurrentStep    Step
	CompletedSteps int
	TotalSteps     int
	IsComplete     bool
	HasError       bool
	ErrorMessage   string
}

// Percent returns completion as 0–100.
func (p Progress) Percent() float64 {
	if p.TotalSteps == 0 {
		return 0
	}
	return float64(p.CompletedSteps) / float64(p.TotalSteps) * 100
}

// FailureReason disambiguates why startup did not reach Ready.
type FailureReason string

const (
	FailureNone         FailureReason = ""
	FailureCancelled    FailureReason = "cancelled"
	FailureTimeout      FailureReason = "timeout"
	FailureStorageInit  FailureReason = "storage_init"
	FailureSecurityInit FailureReason = "security_init"
	FailureUnknown      FailureReason = "unknown"
)

// Result is the terminal outcome of one startup execution.
type Result struct {
	IsSuccess      bool
	FailureReason  FailureReason
	ErrorMessage   string
	Elapsed        time.Duration
	CompletedSteps int
	TotalSteps     int
}

// ProgressHandler receives progress transitions synchronously.
type ProgressHandler func(Progress)

// DefaultTimeout bounds the whole sequence.
const DefaultTimeout = 5 * time.Minute

// Orchestrator runs the startup sequence exactly once per process lifetime.
// A second Execute call returns the recorded result of the first.
type Orchestrator struct {
	store   credstore.Store
	bridge  *providers.Bridge
	service *status.Service
	logger  *logging.Logger
	timeout time.Duration

	mu         sync.Mutex
	progress   Progress
	handlers   []ProgressHandler
	executed   bool
	lastResult Result
}

// NewOrchestrator creates a startup orchestrator.
func NewOrchestrator(store credstore.Store, bridge *providers.Bridge, service *status.Service, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		bridge:  bridge,
		service: service,
		logger:  logger,
		timeout: DefaultTimeout,
		progress: Progress{
			CurrentStep: StepInitializing,
			TotalSteps:  TotalSteps,
		},
	}
}

// SetTimeout overrides the overall sequence timeout.
func (o *Orchestrator) SetTimeout(d time.Duration) {
	o.mu.Lock()
	o.timeout = d
	o.mu.Unlock()
}

// OnProgress registers a handler for progress transitions. Handlers fire
// synchronously on the executing goroutine and must not block.
func (o *Orchestrator) OnProgress(h ProgressHandler) {
	o.mu.Lock()
	o.handlers = append(o.handlers, h)
	o.mu.Unlock()
}

// Progress returns the current progress snapshot.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Execute runs the sequence under one overall deadline linked with the
// caller's cancellation. It never panics out; an unexpected panic folds into
// a FailureUnknown result.
func (o *Orchestrator) Execute(ctx context.Context) (result Result) {
	o.mu.Lock()
	if o.executed {
		prev := o.lastResult
		o.mu.Unlock()
		return prev
	}
	o.executed = true
	timeout := o.timeout
	o.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Startup panicked: %v", r)
			result = o.fail(ctx, nil, start, 0, FailureUnknown, fmt.Errorf("startup panicked: %v", r))
		}
		o.mu.Lock()
		o.lastResult = result
		o.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	completed := 0

	// Step 1: sequence bookkeeping.
	o.publish(StepInitializing, completed, false, "")
	o.logger.Debug("Startup sequence beginning (%d steps)", TotalSteps)
	completed++

	// Step 2: storage (fatal). A credential round-trip proves the store is
	// readable and writable before anything depends on it.
	o.publish(StepInitializingStorage, completed, false, "")
	if err := o.checkStorage(runCtx); err != nil {
		return o.fail(ctx, runCtx, start, completed, FailureStorageInit, err)
	}
	completed++

	// Step 3: security (fatal). Secret memory must seal and open.
	o.publish(StepInitializingSecurity, completed, false, "")
	if err := o.checkSecurity(runCtx); err != nil {
		return o.fail(ctx, runCtx, start, completed, FailureSecurityInit, err)
	}
	completed++

	// Step 4: email provider (lenient). A bad status here just means the
	// dashboard shows it unhealthy later.
	o.publish(StepInitializingEmailProvider, completed, false, "")
	o.checkProvider(runCtx, providers.KindGmail)
	completed++

	// Step 5: LLM provider (lenient).
	o.publish(StepInitializingLLMProvider, completed, false, "")
	o.checkProvider(runCtx, providers.KindOpenAI)
	completed++

	// Step 6: health snapshot. Never fails the sequence, even at 0 healthy.
	o.publish(StepCheckingProviderHealth, completed, false, "")
	if err := runCtx.Err(); err != nil {
		return o.fail(ctx, runCtx, start, completed, FailureUnknown, err)
	}
	o.service.RefreshAll(runCtx)
	healthy, total := 0, 0
	for _, st := range o.service.GetAll() {
		total++
		if st.IsHealthy {
			healthy++
		}
	}
	o.logger.Info("Provider health: %d/%d healthy", healthy, total)
	completed++

	o.publish(StepReady, completed, false, "")
	elapsed := time.Since(start)
	o.logger.Info("Startup complete in %s", elapsed)

	return Result{
		IsSuccess:      true,
		Elapsed:        elapsed,
		CompletedSteps: completed,
		TotalSteps:     TotalSteps,
	}
}

func (o *Orchestrator) checkStorage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const canaryKey = "startup.storage_probe"
	canaryValue := fmt.Sprintf("probe-%d", time.Now().UnixNano())

	if err := o.store.Store(canaryKey, canaryValue); err != nil {
		return err
	}
	value, found, err := o.store.Retrieve(canaryKey)
	if err != nil {
		return err
	}
	if !found || value != canaryValue {
		return mserrors.StorageError{Op: "verify", Key: canaryKey, Message: "round-trip mismatch"}
	}
	return o.store.Remove(canaryKey)
}

func (o *Orchestrator) checkSecurity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	plaintext := []byte("mailsweep security probe")
	enclave := memguard.NewEnclave(plaintext)
	locked, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("secure memory unavailable: %w", err)
	}
	defer locked.Destroy()

	if locked.String() != "mailsweep security probe" {
		return errors.New("secure memory round-trip mismatch")
	}
	return nil
}

func (o *Orchestrator) checkProvider(ctx context.Context, kind providers.Kind) {
	if ctx.Err() != nil {
		return
	}
	if !o.bridge.Has(kind) {
		o.logger.Debug("Provider %s not wired yet, skipping startup check", kind)
		return
	}

	st := o.bridge.GetStatus(ctx, kind)
	if st.Status == providers.StatusError {
		o.logger.Warn("Provider %s failed status lookup: %s", kind, st.ErrorMessage)
		return
	}
	o.logger.Debug("Provider %s: %s", kind, st.Status)
}

// fail builds the failure result, disambiguating caller cancellation and
// overall timeout from the step's own reason.
func (o *Orchestrator) fail(ctx, runCtx context.Context, start time.Time, completed int, reason FailureReason, err error) Result {
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		reason = FailureCancelled
	case runCtx != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		reason = FailureTimeout
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	o.logger.Error("Startup failed at %s: %s", o.Progress().CurrentStep, msg)
	o.publish(StepFailed, completed, true, msg)

	return Result{
		IsSuccess:      false,
		FailureReason:  reason,
		ErrorMessage:   msg,
		Elapsed:        time.Since(start),
		CompletedSteps: completed,
		TotalSteps:     TotalSteps,
	}
}

func (o *Orchestrator) publish(step Step, completed int, hasError bool, errMsg string) {
	progress := Progress{
		CurrentStep:    step,
		CompletedSteps: completed,
		TotalSteps:     TotalSteps,
		IsComplete:     step == StepReady,
		HasError:       hasError,
		ErrorMessage:   errMsg,
	}

	o.mu.Lock()
	o.progress = progress
	handlers := make([]ProgressHandler, len(o.handlers))
	copy(handlers, o.handlers)
	o.mu.Unlock()

	for _, h := range handlers {
		h(progress)
	}
}
