package health

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickTotal    *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec

	providerHealthy *prometheus.GaugeVec

	metricsOnce sync.Once
)

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		tickTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsweep_health_ticks_total",
				Help: "Total number of health monitor ticks",
			},
			[]string{"type"},
		)

		tickDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailsweep_health_tick_duration_seconds",
				Help:    "Duration of health monitor ticks in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
			},
			[]string{"type"},
		)

		providerHealthy = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mailsweep_provider_healthy",
				Help: "Whether a provider is currently healthy (1) or not (0)",
			},
			[]string{"provider"},
		)
	})
}

// Metrics records monitor activity. Methods are no-ops until InitMetrics
// has run, so the monitor can carry a recorder unconditionally.
type Metrics struct{}

// NewMetrics creates a metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordTick records one completed tick.
func (m *Metrics) RecordTick(full bool, elapsed time.Duration) {
	if tickTotal == nil {
		return
	}
	kind := "quick"
	if full {
		kind = "full"
	}
	tickTotal.WithLabelValues(kind).Inc()
	tickDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordProviderHealth records a provider's current health.
func (m *Metrics) RecordProviderHealth(provider string, healthy bool) {
	if providerHealthy == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	providerHealthy.WithLabelValues(provider).Set(value)
}
