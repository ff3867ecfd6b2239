// Package health drives periodic provider status refreshes on two cadences:
// cheap credential re-derivation every quick tick, full network probes no
// more often than the full-tick gate allows.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mailsweep/mailsweep/internal/logging"
	"github.com/mailsweep/mailsweep/internal/status"
)

// MonitorConfig holds configuration for the health monitor.
type MonitorConfig struct {
	// QuickInterval is the base tick cadence. Quick ticks re-derive
	// credential presence without network probes.
	// Default: 30 seconds
	QuickInterval time.Duration

	// FullInterval gates network-probing ticks: a full tick runs only when
	// at least this much time has passed since the previous one.
	// Default: 120 seconds
	FullInterval time.Duration

	// StartupDelay postpones the first tick after Start. The first tick is
	// always a full one.
	// Default: 2 seconds
	StartupDelay time.Duration
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		QuickInterval: 30 * time.Second,
		FullInterval:  120 * time.Second,
		StartupDelay:  2 * time.Second,
	}
}

// Monitor is the background refresh loop. A single goroutine owns the
// ticker; each tick is awaited to completion before the next is scheduled,
// so ticks never overlap and there is exactly one source of truth for
// "was the last pass cheap or expensive".
type Monitor struct {
	config  MonitorConfig
	service *status.Service
	logger  *logging.Logger
	metrics *Metrics

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
	manual        chan struct{}
	lastFullCheck time.Time
}

// NewMonitor creates a monitor over the given status service.
func NewMonitor(service *status.Service, logger *logging.Logger, config MonitorConfig) *Monitor {
	if config.QuickInterval <= 0 {
		config.QuickInterval = DefaultMonitorConfig().QuickInterval
	}
	if config.FullInterval <= 0 {
		config.FullInterval = DefaultMonitorConfig().FullInterval
	}
	return &Monitor{
		config:  config,
		service: service,
		logger:  logger,
		manual:  make(chan struct{}, 1),
	}
}

// SetMetrics attaches a metrics recorder. Optional.
func (m *Monitor) SetMetrics(metrics *Metrics) {
	m.mu.Lock()
	m.metrics = metrics
	m.mu.Unlock()
}

// Start launches the background loop. It returns an error if the monitor is
// already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("health monitor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(loopCtx)
	return nil
}

// Stop cancels the loop cooperatively and waits for the in-flight tick to
// finish. No probe is terminated mid-call.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// TriggerManual forces a full tick outside the cadence, for user-initiated
// "refresh now". Coalesces when a trigger is already pending.
func (m *Monitor) TriggerManual() {
	select {
	case m.manual <- struct{}{}:
	default:
	}
}

// LastFullCheck returns when the last network-probing pass completed.
func (m *Monitor) LastFullCheck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFullCheck
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	select {
	case <-ctx.Done():
		return
	case <-time.After(m.config.StartupDelay):
	}

	// The very first pass always probes.
	m.tick(ctx, true)

	ticker := time.NewTicker(m.config.QuickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.manual:
			m.tick(ctx, true)

		case <-ticker.C:
			full := time.Since(m.LastFullCheck()) >= m.config.FullInterval
			m.tick(ctx, full)
		}
	}
}

// tick runs one refresh pass. Failures and panics are logged and swallowed;
// the loop always survives to the next scheduled tick.
func (m *Monitor) tick(ctx context.Context, full bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Health tick panicked: %v", r)
		}
	}()

	start := time.Now()
	if full {
		m.service.RefreshAll(ctx)
		m.mu.Lock()
		m.lastFullCheck = time.Now()
		m.mu.Unlock()
	} else {
		m.service.RefreshCached(ctx)
	}

	m.mu.Lock()
	metrics := m.metrics
	m.mu.Unlock()
	if metrics != nil {
		metrics.RecordTick(full, time.Since(start))
		for name, st := range m.service.GetAll() {
			metrics.RecordProviderHealth(name, st.IsHealthy)
		}
	}

	kind := "quick"
	if full {
		kind = "full"
	}
	m.logger.Debug("Health tick (%s) completed in %s", kind, time.Since(start))
}
