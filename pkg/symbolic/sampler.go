package symbolic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Metric selects how deviation from earlier solutions is measured.
type Metric int

const (
	// MetricAbsolute requires some numeric variable to move by at least the
	// current distance: OR over v of |v - prev(v)| >= D.
	MetricAbsolute Metric = iota
	// MetricRelative requires the summed relative change to reach D percent:
	// Σ |v - prev(v)| / max(1, |prev(v)|) >= D/100.
	MetricRelative
)

func (m Metric) String() string {
	if m == MetricRelative {
		return "relative"
	}
	return "absolute"
}

// ParseMetric converts "absolute" or "relative" to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "absolute":
		return MetricAbsolute, nil
	case "relative":
		return MetricRelative, nil
	}
	return 0, fmt.Errorf("unknown deviation metric %q", s)
}

// SamplerConfig holds the deviation schedule of a Sampler.
type SamplerConfig struct {
	// InitialDistance is the deviation demanded from the second solution on.
	InitialDistance float64
	// MinDistance is the floor of the schedule; an infeasible query at the
	// floor ends the stream.
	MinDistance float64
	// Decay multiplies the distance after each infeasible query.
	Decay  float64
	Metric Metric
}

// DefaultSamplerConfig starts at 100 and halves down to 1.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{InitialDistance: 100, MinDistance: 1, Decay: 0.5}
}

// Sampler produces solutions of a constraint set that are spread out in
// value space. Each new solution must deviate from every earlier one by the
// current distance; when that is infeasible the distance decays
// geometrically until it reaches the floor.
type Sampler struct {
	config SamplerConfig
	solver SolverOptions
	logger *zap.Logger
	calls  atomic.Int64
}

// NewSampler creates a sampler. A nil logger disables logging.
func NewSampler(cfg SamplerConfig, opts SolverOptions, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.5
	}
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = 1
	}
	if cfg.InitialDistance < cfg.MinDistance {
		cfg.InitialDistance = cfg.MinDistance
	}
	return &Sampler{config: cfg, solver: opts, logger: logger}
}

// Config returns the sampler's schedule.
func (s *Sampler) Config() SamplerConfig { return s.config }

// Sample returns a lazy stream of at most k pairwise-diverse solutions of set.
// The stream is empty when set is infeasible.
func (s *Sampler) Sample(set ConstraintSet, env *Environment, k int) *Stream {
	return &Stream{
		sampler:  s,
		base:     set,
		env:      env,
		k:        k,
		distance: s.config.InitialDistance,
	}
}

// Stream yields solutions in the order they are discovered. Streams are
// not restartable and not safe for concurrent use.
//
//	st := sampler.Sample(set, env, 3)
//	for st.Next(ctx) {
//		use(st.Solution())
//	}
//	if err := st.Err(); err != nil { ... }
type Stream struct {
	sampler   *Sampler
	base      ConstraintSet
	env       *Environment
	k         int
	found     []Assignment
	distance  float64
	current   Assignment
	threshold float64
	done      bool
	err       error
}

// Next advances to the next solution. It returns false when k solutions
// have been produced, no further diverse solution exists, or an error occurred.
func (st *Stream) Next(ctx context.Context) bool {
	if st.done {
		return false
	}
	if len(st.found) >= st.k {
		st.done = true
		return false
	}
	s := st.sampler
	for {
		set := st.base
		for _, prev := range st.found {
			set = set.With(s.deviation(prev, st.env, st.distance))
		}
		sol, err := s.solver.solve(ctx, "sample", set, s.calls.Add(1))
		if err == nil {
			st.found = append(st.found, sol)
			st.current = sol
			st.threshold = st.distance
			samplerThreshold.Observe(st.distance)
			s.logger.Debug("sample found",
				zap.Int("index", len(st.found)),
				zap.Float64("distance", st.distance),
				zap.Stringer("solution", sol))
			return true
		}
		if !errors.Is(err, ErrInfeasible) {
			st.err = err
			st.done = true
			return false
		}
		if errors.Is(err, solver.ErrSearchLimitReached) {
			s.logger.Warn("sampler search hit its limit", zap.Float64("distance", st.distance))
		}
		if len(st.found) == 0 || st.distance <= s.config.MinDistance {
			st.done = true
			return false
		}
		st.distance = math.Max(s.config.MinDistance, st.distance*s.config.Decay)
	}
}

// Solution returns the solution found by the last successful Next.
func (st *Stream) Solution() Assignment { return st.current }

// Threshold returns the deviation distance that was in force when the
// current solution was found.
func (st *Stream) Threshold() float64 { return st.threshold }

// Err returns the first error that stopped the stream. Infeasibility is not an error.
func (st *Stream) Err() error { return st.err }

// Collect drains the stream.
func (st *Stream) Collect(ctx context.Context) ([]Assignment, error) {
	var out []Assignment
	for st.Next(ctx) {
		out = append(out, st.Solution())
	}
	return out, st.Err()
}

func numConst(f float64) *solver.Expr {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return solver.Const(solver.IntValue(int64(f)))
	}
	return solver.Const(solver.RealValue(f))
}

// deviation builds the constraint that keeps later solutions away from prev.
func (s *Sampler) deviation(prev Assignment, env *Environment, distance float64) Constraint {
	var terms []*solver.Expr
	for _, name := range prev.Keys() {
		val := prev[name]
		v, ok := env.Lookup(name)
		if !ok || !v.Kind().Numeric() || !val.Kind().Numeric() {
			continue
		}
		diff := solver.Abs(solver.Sub(solver.Ref(v), solver.Const(val)))
		switch s.config.Metric {
		case MetricRelative:
			scale := math.Max(1, math.Abs(val.Float()))
			terms = append(terms, solver.Mul(diff, solver.Const(solver.RealValue(1/scale))))
		default:
			terms = append(terms, solver.Ge(diff, numConst(distance)))
		}
	}
	if s.config.Metric == MetricRelative {
		if len(terms) == 0 {
			return NewConstraint(solver.Bool(false))
		}
		return NewConstraint(solver.Ge(solver.Sum(terms...), solver.Const(solver.RealValue(distance/100))))
	}
	return NewConstraint(solver.Or(terms...))
}
