package bidir

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitions counts state entries
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_controller_transitions_total",
		Help: "Controller state entries by state",
	}, []string{"state"})

	// oracleFailures counts failed oracle calls by stage
	oracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_oracle_failures_total",
		Help: "Failed oracle calls by stage",
	}, []string{"stage"})

	// runs counts finished controller runs by outcome
	runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seedsynth_controller_runs_total",
		Help: "Controller runs by outcome (accepted, exhausted, infeasible, error)",
	}, []string{"outcome"})
)
