package symbolic

import (
	"context"
	"fmt"
	"time"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// SolverOptions configures the solver calls made by the components of this package.
type SolverOptions struct {
	// IntBound and RealBound limit the search space of Integer and Real variables.
	IntBound  int64
	RealBound float64

	// NodeLimit bounds each search. A search that hits it is treated as
	// finding no solution.
	NodeLimit int

	// TimeLimit bounds each solver call. Zero means no limit.
	TimeLimit time.Duration

	// Random selects seeded random value ordering instead of nearest-to-zero.
	Random bool
	Seed   int64
}

// DefaultSolverOptions returns deterministic options with the solver's default bounds.
func DefaultSolverOptions() SolverOptions {
	d := solver.DefaultSolverConfig()
	return SolverOptions{
		IntBound:  d.IntBound,
		RealBound: d.RealBound,
		NodeLimit: d.NodeLimit,
	}
}

func (o SolverOptions) config(salt int64) *solver.SolverConfig {
	cfg := solver.DefaultSolverConfig()
	if o.IntBound > 0 {
		cfg.IntBound = o.IntBound
	}
	if o.RealBound > 0 {
		cfg.RealBound = o.RealBound
	}
	if o.NodeLimit > 0 {
		cfg.NodeLimit = o.NodeLimit
	}
	if o.Random {
		cfg.ValueHeuristic = solver.ValueOrderRandom
		cfg.RandomSeed = o.Seed + salt
	}
	return cfg
}

// newSolver builds a solver over set with a monitor attached. extra
// declares variables that must appear in solutions even when no
// constraint mentions them.
func (o SolverOptions) newSolver(set ConstraintSet, extra []Variable, salt int64) (*solver.Solver, *solver.SolverMonitor, error) {
	model := solver.NewModelWithConfig(o.config(salt))
	for _, c := range set.items {
		if err := model.AddConstraint(c.expr); err != nil {
			return nil, nil, fmt.Errorf("constraint %s: %w", c, err)
		}
	}
	for _, v := range extra {
		if _, err := model.Declare(v); err != nil {
			return nil, nil, err
		}
	}
	monitor := solver.NewSolverMonitor()
	s := solver.NewSolver(model)
	s.SetMonitor(monitor)
	return s, monitor, nil
}

func (o SolverOptions) solveOpts(extra ...solver.SolveOption) []solver.SolveOption {
	if o.TimeLimit > 0 {
		extra = append(extra, solver.WithTimeLimit(o.TimeLimit))
	}
	return extra
}

// solve returns one solution of set, or ErrInfeasible. A search cut short
// by a limit is reported as ErrInfeasible wrapping solver.ErrSearchLimitReached.
func (o SolverOptions) solve(ctx context.Context, query string, set ConstraintSet, salt int64) (Assignment, error) {
	start := time.Now()
	s, monitor, err := o.newSolver(set, nil, salt)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(ctx, o.solveOpts()...)
	if res != nil {
		observeQuery(query, res.Status, start, monitor.GetStats())
	}
	switch {
	case res == nil:
		return nil, err
	case res.Status == solver.StatusSat:
		return res.Assignment, nil
	case res.Status == solver.StatusUnsat:
		return nil, ErrInfeasible
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("%w: %w", ErrInfeasible, err)
}
