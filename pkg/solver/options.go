package solver

import (
	"context"
	"time"
)

// SolveOption configures a single Solve or Minimize call.
// Use helpers like WithTimeLimit, WithNodeLimit, WithHints and
// WithTargetObjective to customize the search.
type SolveOption func(*solveConfig)

type solveConfig struct {
	timeLimit       time.Duration
	nodeLimit       int
	maxRounds       int
	hints           map[string]float64
	targetObjective *float64
}

// WithTimeLimit sets a hard time limit. When reached, the best incumbent (if
// any) is returned together with ErrSearchLimitReached.
func WithTimeLimit(d time.Duration) SolveOption {
	return func(c *solveConfig) { c.timeLimit = d }
}

// WithNodeLimit limits the number of search node expansions per search.
func WithNodeLimit(n int) SolveOption {
	return func(c *solveConfig) { c.nodeLimit = n }
}

// WithMaxRounds limits the improvement rounds of Minimize.
func WithMaxRounds(n int) SolveOption {
	return func(c *solveConfig) { c.maxRounds = n }
}

// WithHints asks the search to try the given values first. Hints are
// preferences, not constraints.
func WithHints(hints map[string]float64) SolveOption {
	return func(c *solveConfig) { c.hints = hints }
}

// WithTargetObjective stops Minimize as soon as the objective reaches target.
func WithTargetObjective(target float64) SolveOption {
	return func(c *solveConfig) { c.targetObjective = &target }
}

func (s *Solver) options(opts []SolveOption) solveConfig {
	cfg := solveConfig{
		nodeLimit: s.config.NodeLimit,
		maxRounds: s.config.MaxRounds,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

func (c solveConfig) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeLimit > 0 {
		return context.WithTimeout(ctx, c.timeLimit)
	}
	return context.WithCancel(ctx)
}
