package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/meeting-correlator/internal/models"
)

const (
	// OutcomeSuccess labels completed correlation runs.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels runs rejected for malformed input.
	OutcomeInvalid = "invalid"
	// OutcomeError labels runs that failed for any other reason.
	OutcomeError = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meeting_correlator",
			Name:      "runs_total",
			Help:      "Total number of correlation runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "meeting_correlator",
			Name:      "run_seconds",
			Help:      "Correlation run latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meeting_correlator",
			Name:      "matches_total",
			Help:      "Accepted notice/artifact matches, partitioned by match category.",
		},
		[]string{"category"},
	)

	orphansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meeting_correlator",
			Name:      "orphans_total",
			Help:      "Unmatched records, partitioned by input side.",
		},
		[]string{"side"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meeting_correlator",
			Name:      "cache_requests_total",
			Help:      "Result cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches the correlator collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		matchesTotal,
		orphansTotal,
		cacheRequestsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeInvalid, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	runsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveResult records per-category matches and per-side orphans of a run.
func ObserveResult(m models.CorrelationMetrics) {
	for _, category := range models.Categories {
		if n := m.ByCategory[category]; n > 0 {
			matchesTotal.WithLabelValues(category.String()).Add(float64(n))
		}
	}
	if m.Notices.Orphaned > 0 {
		orphansTotal.WithLabelValues(models.SideNotice.String()).Add(float64(m.Notices.Orphaned))
	}
	if m.Artifacts.Orphaned > 0 {
		orphansTotal.WithLabelValues(models.SideArtifact.String()).Add(float64(m.Artifacts.Orphaned))
	}
}

// ObserveCache records one cache lookup result.
func ObserveCache(result string) {
	cacheRequestsTotal.WithLabelValues(result).Inc()
}
