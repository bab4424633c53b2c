package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.MustRegister(registry)

	t.Run("ObservePhase", func(t *testing.T) {
		m.ObservePhase("generate", 0.001, nil)
		m.ObservePhase("parse", 0.002, errors.New("syntax error"))

		assert.Equal(t, 2, testutil.CollectAndCount(m.phaseDuration))
	})

	t.Run("ObserveCycle", func(t *testing.T) {
		m.ObserveCycle("changed")
		m.ObserveCycle("changed")
		m.ObserveCycle("failed")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("changed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("failed")))
	})

	t.Run("SetChainEntries", func(t *testing.T) {
		m.SetChainEntries("main", 12)
		m.SetChainEntries("main", 3)

		assert.Equal(t, 3.0, testutil.ToFloat64(m.chainEntries.WithLabelValues("main")))
	})

	t.Run("ObserveWorkerJob", func(t *testing.T) {
		m.ObserveWorkerJob(0.5, nil, false)
		m.ObserveWorkerJob(0.0001, nil, true)

		assert.Equal(t, 2, testutil.CollectAndCount(m.workerJobs))
	})

	t.Run("Verify labels are used correctly", func(t *testing.T) {
		families, err := registry.Gather()
		require.NoError(t, err)

		labels := map[string]bool{}
		for _, mf := range families {
			if mf.GetName() != "lathe_compile_phase_duration_seconds" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				for _, lp := range metric.GetLabel() {
					labels[lp.GetName()+"="+lp.GetValue()] = true
				}
			}
		}
		assert.True(t, labels["phase=generate"])
		assert.True(t, labels["result=success"])
		assert.True(t, labels["result=error"])
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePhase("generate", 1, nil)
		m.ObserveCycle("changed")
		m.SetChainEntries("main", 1)
		m.ObserveWorkerJob(1, nil, true)
	})
}
