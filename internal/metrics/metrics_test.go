package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/meeting-correlator/internal/models"
)

func newRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	return reg
}

// counterValue reads a labelled counter from reg, 0 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveRunLabels(t *testing.T) {
	reg := newRegistry(t)
	const name = "meeting_correlator_runs_total"

	before := counterValue(t, reg, name, "outcome", OutcomeSuccess)
	ObserveRun(10*time.Millisecond, "whatever")
	assert.InDelta(t, before+1, counterValue(t, reg, name, "outcome", OutcomeSuccess), 1e-9)

	invalid := counterValue(t, reg, name, "outcome", OutcomeInvalid)
	ObserveRun(-time.Second, OutcomeInvalid)
	assert.InDelta(t, invalid+1, counterValue(t, reg, name, "outcome", OutcomeInvalid), 1e-9)
}

func TestObserveResult(t *testing.T) {
	reg := newRegistry(t)
	composite := counterValue(t, reg, "meeting_correlator_matches_total", "category", "composite")
	artifacts := counterValue(t, reg, "meeting_correlator_orphans_total", "side", "artifact")

	ObserveResult(models.CorrelationMetrics{
		ByCategory: map[models.MatchCategory]int{models.CategoryComposite: 2},
		Artifacts:  models.SideCounts{Orphaned: 3},
	})

	assert.InDelta(t, composite+2, counterValue(t, reg, "meeting_correlator_matches_total", "category", "composite"), 1e-9)
	assert.InDelta(t, artifacts+3, counterValue(t, reg, "meeting_correlator_orphans_total", "side", "artifact"), 1e-9)
}

func TestObserveCache(t *testing.T) {
	reg := newRegistry(t)
	const name = "meeting_correlator_cache_requests_total"
	before := counterValue(t, reg, name, "result", CacheHit)
	ObserveCache(CacheHit)
	assert.InDelta(t, before+1, counterValue(t, reg, name, "result", CacheHit), 1e-9)
}
