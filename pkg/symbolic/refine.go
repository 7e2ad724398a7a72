package symbolic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// RefineMode selects the refinement strategy.
type RefineMode int

const (
	// RefineL1 minimises the summed absolute deviation from the targets.
	RefineL1 RefineMode = iota
	// RefineBanded is experimental: it looks for any solution within a
	// randomly jittered tolerance band around the targets, widening the band
	// on failure, and falls back to RefineL1 when no band attempt succeeds.
	RefineBanded
)

func (m RefineMode) String() string {
	if m == RefineBanded {
		return "banded"
	}
	return "l1"
}

// ParseRefineMode converts "l1" or "banded" to a RefineMode.
func ParseRefineMode(s string) (RefineMode, error) {
	switch s {
	case "", "l1":
		return RefineL1, nil
	case "banded":
		return RefineBanded, nil
	}
	return 0, fmt.Errorf("unknown refine mode %q", s)
}

// RefinerConfig configures a Refiner.
type RefinerConfig struct {
	Mode RefineMode

	// MaxRounds bounds the improvement rounds of the L1 minimisation.
	MaxRounds int

	// Band is the initial relative tolerance of RefineBanded.
	Band float64
	// BandAttempts is the number of band widenings tried before falling back.
	BandAttempts int
	// Seed drives the band jitter.
	Seed int64
}

// DefaultRefinerConfig returns the L1 refiner.
func DefaultRefinerConfig() RefinerConfig {
	return RefinerConfig{Mode: RefineL1, MaxRounds: 64, Band: 0.05, BandAttempts: 4}
}

// Refiner finds the solution of a constraint set nearest to target values
// that need not satisfy it. Hard constraints are never violated.
type Refiner struct {
	config RefinerConfig
	solver SolverOptions
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRefiner creates a refiner. A nil logger disables logging.
func NewRefiner(cfg RefinerConfig, opts SolverOptions, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 64
	}
	if cfg.Band <= 0 {
		cfg.Band = 0.05
	}
	return &Refiner{
		config: cfg,
		solver: opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(cfg.Seed), 0x5eed)),
	}
}

// Refine returns a solution of set minimising Σ |v - targets[v]| over the
// numeric targets. Text targets are ignored. Target variables missing from
// env are declared and always appear in the result. ErrInfeasible is
// returned only when set itself has no solution.
func (r *Refiner) Refine(ctx context.Context, set ConstraintSet, env *Environment, targets Assignment) (Assignment, error) {
	vars, hints := r.targetVars(env, targets)
	if r.config.Mode == RefineBanded && len(vars) > 0 {
		if sol, ok := r.banded(ctx, set, vars, targets); ok {
			return sol, nil
		}
	}
	return r.minimise(ctx, set, vars, targets, hints)
}

func (r *Refiner) targetVars(env *Environment, targets Assignment) ([]Variable, map[string]float64) {
	var vars []Variable
	hints := make(map[string]float64)
	for _, name := range targets.Keys() {
		val := targets[name]
		if !val.Kind().Numeric() {
			continue
		}
		var v Variable
		env, v = env.Declare(name, val.Kind())
		if !v.Kind().Numeric() {
			continue
		}
		vars = append(vars, v)
		hints[name] = val.Float()
	}
	return vars, hints
}

func (r *Refiner) minimise(ctx context.Context, set ConstraintSet, vars []Variable, targets Assignment, hints map[string]float64) (Assignment, error) {
	start := time.Now()
	s, monitor, err := r.solver.newSolver(set, vars, 0)
	if err != nil {
		return nil, err
	}
	terms := make([]*solver.Expr, len(vars))
	for i, v := range vars {
		terms[i] = solver.Abs(solver.Sub(solver.Ref(v), solver.Const(targets[v.Name()])))
	}
	opts := r.solver.solveOpts(solver.WithHints(hints), solver.WithMaxRounds(r.config.MaxRounds))
	res, err := s.Minimize(ctx, solver.Sum(terms...), opts...)
	if res == nil {
		return nil, err
	}
	stats := monitor.GetStats()
	observeQuery("refine", res.Status, start, stats)
	switch res.Status {
	case solver.StatusUnsat:
		return nil, ErrInfeasible
	case solver.StatusUnknown:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrInfeasible, err)
	}
	if err != nil {
		if !errors.Is(err, solver.ErrSearchLimitReached) {
			return nil, err
		}
		r.logger.Warn("refinement stopped before proving optimality", zap.Error(err), zap.Int("rounds", stats.Rounds))
	}
	r.logger.Debug("refined",
		zap.Stringer("target", targets),
		zap.Stringer("solution", res.Assignment),
		zap.String("distance", res.Objective.String()),
		zap.Bool("optimal", res.Optimal),
		zap.Int("nodes", stats.NodesExplored),
		zap.Int("rounds", stats.Rounds),
		zap.Int("backtracks", stats.Backtracks),
		zap.Duration("search_time", stats.SearchTime))
	return res.Assignment, nil
}

// banded tries successively wider tolerance bands around the targets.
func (r *Refiner) banded(ctx context.Context, set ConstraintSet, vars []Variable, targets Assignment) (Assignment, bool) {
	r.mu.Lock()
	jitter := 0.5 + 0.5*r.rng.Float64()
	seed := r.rng.Int64()
	r.mu.Unlock()

	band := r.config.Band * jitter
	for attempt := 0; attempt < r.config.BandAttempts; attempt++ {
		var within []Constraint
		for _, v := range vars {
			t := targets[v.Name()]
			width := band * math.Max(1, math.Abs(t.Float()))
			diff := solver.Abs(solver.Sub(solver.Ref(v), solver.Const(t)))
			within = append(within, NewConstraint(solver.Le(diff, numConst(width))))
		}
		opts := r.solver
		opts.Random = true
		opts.Seed = seed
		sol, err := opts.solve(ctx, "refine_banded", set.With(within...), int64(attempt))
		if err == nil {
			r.logger.Debug("banded refinement", zap.Float64("band", band), zap.Stringer("solution", sol))
			return sol, true
		}
		if !errors.Is(err, ErrInfeasible) {
			return nil, false
		}
		band *= 2
	}
	return nil, false
}
