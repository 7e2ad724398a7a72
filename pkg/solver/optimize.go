package solver

import (
	"context"
	"fmt"
	"math"
)

// Minimize finds an assignment satisfying every constraint that minimises objective.
//
// Contract:
//   - objective is a bound numeric expression over model variables.
//   - If the model is infeasible, Minimize returns a StatusUnsat result and no error.
//   - On success the result carries the best assignment, its objective value,
//     and Optimal=true when no better assignment exists.
//   - When a limit (nodes, rounds, time, ctx) stops the run, the best
//     incumbent is returned together with ErrSearchLimitReached. Without an
//     incumbent the result has StatusUnknown.
//
// Implementation notes:
//   - Each round is a complete Solve with an extra constraint
//     objective <= cutoff. The cutoff bisects the gap between the proven
//     lower bound and the incumbent: a satisfiable round yields a better
//     incumbent, an unsatisfiable one raises the lower bound above the
//     cutoff. The incumbent is optimal once the gap closes (to 1 for
//     integer objectives, to a small relative amount otherwise).
//   - The first lower bound is the objective's interval over the root domains.
//   - With WithHints the search branches toward the hinted values first, so
//     the first incumbent is usually close to the optimum.
func (s *Solver) Minimize(ctx context.Context, objective *Expr, opts ...SolveOption) (*Result, error) {
	cfg := s.options(opts)
	if err := s.prepare(cfg); err != nil {
		return nil, err
	}
	if !objective.Kind().Numeric() {
		return nil, fmt.Errorf("objective %s is %v, want a number", objective, objective.Kind())
	}
	obj, err := compile(objective, s.index, false)
	if err != nil {
		return nil, fmt.Errorf("compile objective: %w", err)
	}
	ctx, cancel := cfg.bound(ctx)
	defer cancel()
	if s.monitor != nil {
		defer s.monitor.FinishSearch()
	}

	base := s.constraints
	defer func() { s.constraints = base }()

	root, ok := s.propagate(nil)
	if !ok {
		return &Result{Status: StatusUnsat}, nil
	}
	lower := s.forward(obj, root).Lo
	if obj.kind == KindInt {
		lower = math.Ceil(lower)
	}

	var best *Result
	nodes := 0
	cutoff := math.Inf(1)
	for round := 0; cfg.maxRounds <= 0 || round < cfg.maxRounds; round++ {
		if s.monitor != nil {
			s.monitor.RecordRound()
		}
		s.constraints = base
		if !math.IsInf(cutoff, 1) {
			s.constraints = append(base[:len(base):len(base)], cutoffConstraint(obj, cutoff))
		}
		res, err := s.search(ctx, cfg)
		nodes += res.Nodes
		if err != nil {
			if best == nil {
				res.Nodes = nodes
				return res, err
			}
			best.Nodes = nodes
			return best, err
		}
		if res.Status == StatusUnsat {
			if best == nil {
				return &Result{Status: StatusUnsat, Nodes: nodes}, nil
			}
			// Nothing is at or below the cutoff.
			lower = cutoff
			if obj.kind == KindInt {
				lower = cutoff + 1
			}
		} else {
			val, ok := obj.eval(res.values)
			if !ok {
				return nil, fmt.Errorf("objective %s undefined at %s", objective, res.Assignment)
			}
			best = res
			best.Objective = val
			if cfg.targetObjective != nil && val.Float() <= *cfg.targetObjective {
				best.Nodes = nodes
				return best, nil
			}
		}
		best.Nodes = nodes

		f := best.Objective.Float()
		if gapClosed(obj.kind, lower, f) {
			best.Optimal = true
			return best, nil
		}
		if obj.kind == KindInt {
			cutoff = lower + math.Floor((f-1-lower)/2)
		} else {
			cutoff = lower + (f-lower)/2
		}
	}
	if best == nil {
		return &Result{Status: StatusUnknown, Nodes: nodes}, ErrSearchLimitReached
	}
	return best, ErrSearchLimitReached
}

// gapClosed reports whether no objective value below f remains above lower.
func gapClosed(kind Kind, lower, f float64) bool {
	if kind == KindInt {
		return f <= lower
	}
	return f-lower <= math.Max(1e-6, 1e-9*math.Abs(f)) || approxEqual(f, lower)
}

// cutoffConstraint builds the constraint obj <= cutoff.
func cutoffConstraint(obj *node, cutoff float64) *node {
	limit := RealValue(cutoff)
	if obj.kind == KindInt {
		limit = IntValue(int64(cutoff))
	}
	return &node{op: OpLe, kind: KindBool, args: []*node{obj, {op: OpConst, kind: limit.kind, val: limit}}}
}
