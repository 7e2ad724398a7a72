// Package bidir drives the bidirectional search for fragment inputs.
//
// The controller alternates two directions. Forward, it runs the fragment
// on candidate inputs and checks the outputs against the postcondition.
// Backward, it asks an inverter for inputs expected to produce a
// postcondition solution and checks them against the precondition. Every
// failed check excludes the offending assignment from its constraint set,
// and inputs that were already run are never run again.
//
// A run moves through these states:
//
//	SeedSelection -> PreCheck -> ForwardExecute -> PostCheck -> Accept
//	                                                   |
//	                                                   v
//	                  Invert <-> ForwardExecute/PostCheck  (inner loop)
//	                                                   |
//	                                                   v
//	                               PreCheck -> Accept or next outer round
//	outer rounds exhausted  -> ExhaustedRetry  -> SeedSelection
//	seed rounds exhausted   -> ExhaustedPotential
//
// The controller is single threaded. Oracle calls block; callers bound
// them through ctx or the oracle's own timeouts.
package bidir

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Side is one half of a problem: the constraints over the fragment's
// inputs (precondition) or outputs (postcondition).
type Side struct {
	Env *symbolic.Environment
	Set symbolic.ConstraintSet

	// Vars are the fragment variables on this side, in a stable order.
	// The first postcondition variable orders the seed pool.
	Vars []string

	// Types maps Vars to their source type tokens.
	Types symbolic.TypeMap
}

// Problem is a precondition over the fragment inputs and a postcondition
// over its outputs.
type Problem struct {
	Pre  Side
	Post Side
}

// Controller searches for fragment inputs satisfying the precondition
// whose outputs satisfy the postcondition.
type Controller struct {
	checker  *symbolic.Checker
	executor Executor
	inverter Inverter

	budgets Budgets
	rng     *rand.Rand
	runID   string
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewController creates a controller.
func NewController(checker *symbolic.Checker, executor Executor, inverter Inverter, cfg Config) *Controller {
	c := &Controller{
		checker:  checker,
		executor: executor,
		inverter: inverter,
		budgets:  cfg.Budgets.normalize(),
		rng:      rand.New(rand.NewPCG(uint64(cfg.Seed), 0xb1d1)),
		runID:    cfg.RunID,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("github.com/gitrdm/seedsynth/pkg/bidir")
	}
	c.logger = c.logger.With(zap.String("run_id", c.runID))
	return c
}

// Budgets returns the effective budgets.
func (c *Controller) Budgets() Budgets { return c.budgets }

// Run searches until an input is accepted or every budget is spent.
//
// The result is never nil and always carries the attempt trace. Run
// returns an error wrapping ErrBudgetExhausted when the budgets run out,
// symbolic.ErrInfeasible when the precondition or postcondition alone has
// no solution, and any non-oracle error that stopped the search. Oracle
// failures are recorded in the trace and never returned.
func (c *Controller) Run(ctx context.Context, p Problem) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "bidir.Run", trace.WithAttributes(
		attribute.String("run.id", c.runID),
		attribute.StringSlice("inputs", p.Pre.Vars),
		attribute.StringSlice("outputs", p.Post.Vars),
	))
	defer span.End()

	r := &run{Controller: c, pre: p.Pre, post: p.Post, res: &Result{RunID: c.runID}, executed: make(map[string]bool)}
	err := r.search(ctx)

	outcome := "accepted"
	switch {
	case err == nil:
		c.logger.Info("accepted", zap.Stringer("inputs", r.res.Inputs), zap.Stringer("outputs", r.res.Outputs),
			zap.Int("attempts", len(r.res.Trace)))
	case errors.Is(err, ErrBudgetExhausted):
		outcome = "exhausted"
	case errors.Is(err, symbolic.ErrInfeasible):
		outcome = "infeasible"
	default:
		outcome = "error"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.logger.Warn("search failed", zap.String("outcome", outcome), zap.Error(err), zap.Int("attempts", len(r.res.Trace)))
	}
	span.SetAttributes(attribute.String("outcome", outcome), attribute.Int("attempts", len(r.res.Trace)))
	runs.WithLabelValues(outcome).Inc()
	return r.res, err
}

// run holds the per-call state of Run. pre and post grow as assignments
// are excluded. Every executed input that did not lead to Accept is
// excluded from pre.
type run struct {
	*Controller
	pre, post Side
	res       *Result

	// executed holds the canonical form of every input run so far.
	executed map[string]bool

	potential, round, inner int
}

func (r *run) search(ctx context.Context) error {
	if len(r.pre.Vars) == 0 || len(r.post.Vars) == 0 {
		return errors.New("problem needs at least one input and one output variable")
	}
	pool, err := r.checker.Selector().Select(ctx, r.post.Set, r.post.Env, r.budgets.PostPool)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		return fmt.Errorf("postcondition: %w", symbolic.ErrInfeasible)
	}
	if first, err := r.checker.Selector().Select(ctx, r.pre.Set, r.pre.Env, 1); err != nil {
		return err
	} else if len(first) == 0 {
		return fmt.Errorf("precondition: %w", symbolic.ErrInfeasible)
	}
	r.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for r.potential = 1; r.potential <= r.budgets.PotentialRetries && len(pool) > 0; r.potential++ {
		var target symbolic.Assignment
		target, pool = pickMedian(pool, r.post.Vars[0])
		accepted, err := r.explore(ctx, target)
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
		r.round, r.inner = 0, 0
		r.record(ctx, Attempt{State: ExhaustedRetry})
	}
	r.potential--
	r.record(ctx, Attempt{State: ExhaustedPotential})
	return fmt.Errorf("%w: %d seed round(s) of %d outer retries", ErrBudgetExhausted, r.potential, r.budgets.MaxRetries)
}

// explore runs one seed round towards target. It returns true on Accept.
func (r *run) explore(ctx context.Context, target symbolic.Assignment) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "bidir.SeedRound", trace.WithAttributes(
		attribute.Int("potential", r.potential),
		attribute.String("target", target.String()),
	))
	defer span.End()

	r.round, r.inner = 0, 0
	goal := symbolic.Raw(target.Project(r.post.Vars))
	seed, strategy, err := r.invertSeed(ctx, goal)
	r.record(ctx, Attempt{State: SeedSelection, Strategy: strategy, Inputs: seed, Outputs: goal, Err: err})
	if err != nil && !IsOracleFailure(err) {
		return false, err
	}

	current, _, err := r.checkPre(ctx, seed, true)
	if err != nil {
		return false, r.branch(ctx, err)
	}

	for r.round = 1; r.round <= r.budgets.MaxRetries; r.round++ {
		r.inner = 0
		inputs, err := r.unexecuted(ctx, current)
		if err != nil {
			return false, r.branch(ctx, err)
		}
		outputs, err := r.execute(ctx, inputs, StrategyNone)
		if err != nil {
			if !IsOracleFailure(err) {
				return false, err
			}
			if current, err = r.replaceInputs(ctx, inputs); err != nil {
				return false, r.branch(ctx, err)
			}
			continue
		}

		postSol, satisfied, err := r.checkPost(ctx, inputs, outputs)
		if err != nil {
			return false, r.branch(ctx, err)
		}
		if satisfied {
			r.accept(ctx, inputs, outputs)
			return true, nil
		}
		if err := r.excludeOutputs(outputs); err != nil {
			return false, err
		}
		if err := r.excludeInputs(inputs); err != nil {
			return false, err
		}

		candidate, candOutputs, postOK, err := r.invertLoop(ctx, postSol)
		if err != nil {
			return false, r.branch(ctx, err)
		}
		r.inner = 0
		if candidate == nil {
			if current, err = r.freshInputs(ctx); err != nil {
				return false, r.branch(ctx, err)
			}
			continue
		}

		preSol, preOK, err := r.checkPre(ctx, candidate, false)
		if err != nil {
			return false, r.branch(ctx, err)
		}
		if preOK && postOK {
			r.accept(ctx, candidate.Project(r.pre.Vars), candOutputs)
			return true, nil
		}
		if err := r.excludeInputs(candidate); err != nil {
			return false, err
		}
		current = preSol
		if preOK {
			if current, err = r.freshInputs(ctx); err != nil {
				return false, r.branch(ctx, err)
			}
		}
	}
	return false, nil
}

// invertLoop alternates the inverse harness and the generative guess,
// running each proposal forward, until an output satisfies the
// postcondition or the inner budget is spent. Proposals that were already
// executed are skipped. It returns the last proposal that executed, its
// outputs and whether they satisfied the postcondition; earlier proposals
// are excluded from the precondition.
func (r *run) invertLoop(ctx context.Context, postSol symbolic.Assignment) (symbolic.RawAssignment, symbolic.RawAssignment, bool, error) {
	var (
		candidate, outputs symbolic.RawAssignment
		satisfied          bool
	)
	for r.inner = 1; r.inner <= r.budgets.InnerRetries; r.inner++ {
		strategy := ViaHarness
		if r.inner%2 == 0 {
			strategy = ViaGuess
		}
		goal := symbolic.Raw(postSol.Project(r.post.Vars))
		proposal, err := r.invert(ctx, goal, strategy)
		r.record(ctx, Attempt{State: Invert, Strategy: strategy, Inputs: proposal, Outputs: goal, Err: err})
		if err != nil {
			if IsOracleFailure(err) {
				continue
			}
			return nil, nil, false, err
		}

		if r.executed[r.key(proposal)] {
			r.record(ctx, Attempt{State: Invert, Strategy: strategy, Inputs: proposal, Outputs: goal, Err: ErrAlreadyExecuted})
			continue
		}

		out, err := r.execute(ctx, proposal, strategy)
		if err != nil {
			if !IsOracleFailure(err) {
				return nil, nil, false, err
			}
			if err := r.excludeInputs(proposal); err != nil {
				return nil, nil, false, err
			}
			continue
		}
		if candidate != nil {
			if err := r.excludeInputs(candidate); err != nil {
				return nil, nil, false, err
			}
		}
		candidate, outputs = proposal, out

		next, ok, err := r.checkPost(ctx, proposal, out)
		if err != nil {
			return nil, nil, false, err
		}
		satisfied = ok
		if ok {
			break
		}
		postSol = next
		if err := r.excludeOutputs(out); err != nil {
			return nil, nil, false, err
		}
	}
	return candidate, outputs, satisfied, nil
}

// invertSeed proposes the first inputs of a seed round: the inverse
// harness, falling back to a guess when the harness fails.
func (r *run) invertSeed(ctx context.Context, goal symbolic.RawAssignment) (symbolic.RawAssignment, Strategy, error) {
	seed, err := r.invert(ctx, goal, ViaHarness)
	if err == nil || !IsOracleFailure(err) {
		return seed, ViaHarness, err
	}
	r.logger.Debug("inverse harness failed, guessing", zap.Error(err))
	seed, err = r.invert(ctx, goal, ViaGuess)
	return seed, ViaGuess, err
}

func (r *run) invert(ctx context.Context, goal symbolic.RawAssignment, strategy Strategy) (symbolic.RawAssignment, error) {
	if strategy == ViaGuess {
		return r.inverter.Guess(ctx, goal)
	}
	return r.inverter.Harness(ctx, goal)
}

func (r *run) execute(ctx context.Context, inputs symbolic.RawAssignment, strategy Strategy) (symbolic.RawAssignment, error) {
	r.executed[r.key(inputs)] = true
	outputs, err := r.executor.Execute(ctx, inputs)
	r.record(ctx, Attempt{State: ForwardExecute, Strategy: strategy, Inputs: inputs, Outputs: outputs, Err: err})
	return outputs, err
}

// checkPre checks inputs against the precondition and returns the
// checked or refined solution projected to the input variables. Inputs
// that fail the check are excluded when exclude is set.
func (r *run) checkPre(ctx context.Context, inputs symbolic.RawAssignment, exclude bool) (symbolic.Assignment, bool, error) {
	sol, ok, err := r.checker.Check(ctx, r.pre.Set, r.pre.Env, inputs.Project(r.pre.Vars), r.pre.Types)
	r.record(ctx, Attempt{State: PreCheck, Inputs: inputs, Outputs: nil, Satisfied: ok, Err: err})
	if err != nil {
		return nil, false, err
	}
	if !ok && exclude && len(inputs) > 0 {
		if err := r.excludeInputs(inputs); err != nil {
			return nil, false, err
		}
	}
	return sol.Project(r.pre.Vars), ok, nil
}

func (r *run) checkPost(ctx context.Context, inputs, outputs symbolic.RawAssignment) (symbolic.Assignment, bool, error) {
	sol, ok, err := r.checker.Check(ctx, r.post.Set, r.post.Env, outputs.Project(r.post.Vars), r.post.Types)
	r.record(ctx, Attempt{State: PostCheck, Inputs: inputs, Outputs: outputs, Satisfied: ok, Err: err})
	return sol, ok, err
}

func (r *run) excludeInputs(inputs symbolic.RawAssignment) error {
	vals, err := symbolic.Coerce(inputs.Project(r.pre.Vars), r.pre.Types, r.pre.Env)
	if err != nil {
		return err
	}
	r.pre.Set, r.pre.Env = symbolic.Exclude(r.pre.Set, r.pre.Env, vals)
	return nil
}

// excludeOutputs forbids observed outputs that failed the postcondition.
func (r *run) excludeOutputs(outputs symbolic.RawAssignment) error {
	vals, err := symbolic.Coerce(outputs.Project(r.post.Vars), r.post.Types, r.post.Env)
	if err != nil {
		return err
	}
	r.post.Set, r.post.Env = symbolic.Exclude(r.post.Set, r.post.Env, vals)
	return nil
}

// key is the canonical form of inputs over the precondition variables.
func (r *run) key(inputs symbolic.RawAssignment) string {
	projected := inputs.Project(r.pre.Vars)
	vals, err := symbolic.Coerce(projected, r.pre.Types, r.pre.Env)
	if err != nil {
		return projected.String()
	}
	return vals.String()
}

// unexecuted returns current in textual form, replacing it with fresh
// inputs while it names inputs that were already executed.
func (r *run) unexecuted(ctx context.Context, current symbolic.Assignment) (symbolic.RawAssignment, error) {
	inputs := symbolic.Raw(current.Project(r.pre.Vars))
	for r.executed[r.key(inputs)] {
		next, err := r.replaceInputs(ctx, inputs)
		if err != nil {
			return nil, err
		}
		inputs = symbolic.Raw(next)
	}
	return inputs, nil
}

// replaceInputs excludes inputs that could not be executed and draws new ones.
func (r *run) replaceInputs(ctx context.Context, inputs symbolic.RawAssignment) (symbolic.Assignment, error) {
	if err := r.excludeInputs(inputs); err != nil {
		return nil, err
	}
	return r.freshInputs(ctx)
}

func (r *run) freshInputs(ctx context.Context) (symbolic.Assignment, error) {
	sols, err := r.checker.Selector().Select(ctx, r.pre.Set, r.pre.Env, 1)
	if err != nil {
		return nil, err
	}
	if len(sols) == 0 {
		return nil, symbolic.ErrInfeasible
	}
	r.record(ctx, Attempt{State: PreCheck, Strategy: ViaSolver, Inputs: symbolic.Raw(sols[0].Project(r.pre.Vars)), Satisfied: true})
	return sols[0].Project(r.pre.Vars), nil
}

// branch turns infeasibility into the end of the seed round.
func (r *run) branch(ctx context.Context, err error) error {
	if errors.Is(err, symbolic.ErrInfeasible) {
		r.logger.Debug("branch exhausted", zap.Int("potential", r.potential), zap.Int("round", r.round), zap.Error(err))
		trace.SpanFromContext(ctx).AddEvent("branch_infeasible")
		return nil
	}
	return err
}

func (r *run) accept(ctx context.Context, inputs, outputs symbolic.RawAssignment) {
	r.res.Accepted = true
	r.res.Inputs = inputs
	r.res.Outputs = outputs
	r.record(ctx, Attempt{State: Accept, Inputs: inputs, Outputs: outputs, Satisfied: true})
}

func (r *run) record(ctx context.Context, a Attempt) {
	a.Potential, a.Round, a.Inner = r.potential, r.round, r.inner
	r.res.Trace = append(r.res.Trace, a)
	r.res.Final = a.State
	transitions.WithLabelValues(a.State.String()).Inc()

	var of *OracleFailure
	if errors.As(a.Err, &of) {
		oracleFailures.WithLabelValues(of.Stage).Inc()
	}
	trace.SpanFromContext(ctx).AddEvent(a.State.String(), trace.WithAttributes(
		attribute.Int("round", a.Round),
		attribute.Int("inner", a.Inner),
		attribute.String("inputs", a.Inputs.String()),
		attribute.String("outputs", a.Outputs.String()),
		attribute.Bool("satisfied", a.Satisfied),
	))
	r.logger.Debug("attempt", zap.Stringer("attempt", a))
}

// pickMedian sorts pool by key and removes and returns the middle element.
func pickMedian(pool []symbolic.Assignment, key string) (symbolic.Assignment, []symbolic.Assignment) {
	slices.SortStableFunc(pool, func(a, b symbolic.Assignment) int {
		va, vb := a[key], b[key]
		if va.Kind().Numeric() && vb.Kind().Numeric() {
			return cmp.Compare(va.Float(), vb.Float())
		}
		return cmp.Compare(va.Raw(), vb.Raw())
	})
	mid := len(pool) / 2
	picked := pool[mid]
	return picked, slices.Delete(pool, mid, mid+1)
}
