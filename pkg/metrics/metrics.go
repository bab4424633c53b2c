// Package metrics exposes Prometheus instrumentation for compilation
// cycles and the geometry worker. All methods are safe on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lathe"

// Metrics holds prometheus metrics for the compile pipeline.
type Metrics struct {
	phaseDuration *prometheus.HistogramVec
	cycles        *prometheus.CounterVec
	chainEntries  *prometheus.GaugeVec
	workerJobs    *prometheus.HistogramVec
}

// New creates an unregistered set of metrics.
func New() *Metrics {
	return &Metrics{
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "compile",
				Name:      "phase_duration_seconds",
				Help:      "Duration of compilation phases in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"phase", "result"}, // result is "success" or "error"
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "compile",
				Name:      "cycles_total",
				Help:      "Total number of compilation cycles by outcome.",
			},
			[]string{"outcome"},
		),
		chainEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "compile",
				Name:      "chain_entries",
				Help:      "Number of entries in the current chains.",
			},
			[]string{"chain"}, // main, highlight, background
		),
		workerJobs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "job_duration_seconds",
				Help:      "Exact geometry job time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
			},
			[]string{"result", "cache"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObservePhase records the duration of one phase of a cycle.
func (m *Metrics) ObservePhase(phase string, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase, result(err)).Observe(durationSeconds)
}

// ObserveCycle counts a finished cycle.
func (m *Metrics) ObserveCycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

// SetChainEntries records the size of a chain. Absent chains are zero.
func (m *Metrics) SetChainEntries(chain string, n int) {
	if m == nil {
		return
	}
	m.chainEntries.WithLabelValues(chain).Set(float64(n))
}

// ObserveWorkerJob records a worker job; cached jobs were served from the
// geometry cache.
func (m *Metrics) ObserveWorkerJob(durationSeconds float64, err error, cached bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.workerJobs.WithLabelValues(result(err), cache).Observe(durationSeconds)
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.phaseDuration)
	registry.MustRegister(m.cycles)
	registry.MustRegister(m.chainEntries)
	registry.MustRegister(m.workerJobs)
}
