// Package observability exposes the engine's Prometheus metrics.
// Metrics are registered once at init via promauto and served from the
// API's /metrics endpoint.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sahayog",
		Subsystem: "scoring",
		Name:      "recompute_total",
		Help:      "Score recomputations, labelled by trigger reason and outcome.",
	}, []string{"reason", "outcome"})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sahayog",
		Subsystem: "scoring",
		Name:      "recompute_duration_seconds",
		Help:      "Wall time of a full score recomputation.",
		Buckets:   prometheus.DefBuckets,
	})

	snapshotSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sahayog",
		Subsystem: "scoring",
		Name:      "snapshot_skips_total",
		Help:      "Recomputations skipped as idempotent no-ops (content hash unchanged).",
	})

	inflightRecomputes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sahayog",
		Subsystem: "scoring",
		Name:      "inflight_recomputes",
		Help:      "Recomputations currently holding a per-user lock.",
	})

	clusterRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sahayog",
		Subsystem: "cluster",
		Name:      "health_runs_total",
		Help:      "Cluster health computations, labelled by resulting status.",
	}, []string{"status"})
)

// RecomputeStarted marks a recomputation as in flight.
func RecomputeStarted() { inflightRecomputes.Inc() }

// RecomputeFinished records a completed recomputation.
func RecomputeFinished(reason string, dur time.Duration, written bool, err error) {
	inflightRecomputes.Dec()
	recomputeDuration.Observe(dur.Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	recomputeTotal.WithLabelValues(reason, outcome).Inc()

	if err == nil && !written {
		snapshotSkipsTotal.Inc()
	}
}

// ClusterRun records one cluster health computation.
func ClusterRun(status string) {
	clusterRunsTotal.WithLabelValues(status).Inc()
}
