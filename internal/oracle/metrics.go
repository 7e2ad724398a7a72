package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// llmCalls counts model calls by outcome
	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_llm_calls_total",
		Help: "Language model calls by outcome",
	}, []string{"outcome"})

	// llmLatency tracks model call latency
	llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seedsynth_llm_call_duration_seconds",
		Help:    "Language model call latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
	})

	// programRuns counts compile-and-run invocations by outcome
	programRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_program_runs_total",
		Help: "Generated program compile-and-run invocations by program and outcome",
	}, []string{"program", "outcome"})
)
