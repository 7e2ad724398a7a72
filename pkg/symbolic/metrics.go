package symbolic

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

var (
	// solverQueries counts solver calls by query kind and outcome
	solverQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_solver_queries_total",
		Help: "Total solver queries by query kind and status",
	}, []string{"query", "status"})

	// solverQueryDuration tracks solver call latency
	solverQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seedsynth_solver_query_duration_seconds",
		Help:    "Solver query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	}, []string{"query"})

	// solverNodes tracks search nodes explored per solver call
	solverNodes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seedsynth_solver_nodes",
		Help:    "Search nodes explored per solver query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
	}, []string{"query"})

	// refineRounds tracks Minimize rounds per refinement
	refineRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seedsynth_refine_rounds",
		Help:    "Objective tightening rounds per refinement",
		Buckets: prometheus.LinearBuckets(1, 8, 9),
	})

	// samplerThreshold records the deviation threshold at which each sample was found
	samplerThreshold = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seedsynth_sampler_threshold",
		Help:    "Deviation threshold active when a diverse sample was found",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 100},
	})
)

func observeQuery(query string, status solver.Status, start time.Time, stats *solver.SolverStats) {
	solverQueries.WithLabelValues(query, status.String()).Inc()
	solverQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	solverNodes.WithLabelValues(query).Observe(float64(stats.NodesExplored))
	if stats.Rounds > 0 {
		refineRounds.Observe(float64(stats.Rounds))
	}
}
