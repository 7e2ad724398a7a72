// This file implements the core solver with copy-on-write state management.
//
// # Architecture Overview
//
// The solver separates the immutable problem definition from mutable solving state:
//
//	Model (immutable during solving):
//	  - Variables with initial domains
//	  - Constraints compiled to negation normal form
//	  - Configuration (heuristics, limits)
//
//	SolverState (copy-on-write):
//	  - Sparse chain of domain modifications
//	  - O(1) cost to create a new state node
//	  - Periodic snapshots keep lookups short on deep chains
//
// # Search
//
// Every search node is first propagated to a fixed point. The solver then
// "dives": it fixes the variables one at a time to a preferred value (a
// hint, the value nearest zero, or a seeded random value), re-propagating
// after each choice, and checks the resulting point exactly against every
// constraint. When the dive fails the widest domain is bisected and both
// halves are pushed onto the stack, the half holding the preferred value on top.
// A hinted variable the dive could not fix is bisected before any other, so
// hinted searches reach the feasible points nearest the hints first.
package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Status is the outcome of a search: satisfiable, unsatisfiable or unknown.
type Status int

const (
	StatusUnsat   Status = -1
	StatusUnknown Status = 0
	StatusSat     Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusSat:
		return "sat"
	case StatusUnsat:
		return "unsat"
	}
	return "unknown"
}

// Result reports the outcome of Solve or Minimize.
type Result struct {
	Status     Status
	Assignment Assignment

	// Objective and Optimal are set by Minimize.
	Objective Value
	Optimal   bool

	// Nodes counts explored search nodes.
	Nodes int

	values []Value
}

// compactEvery controls how often a state node stores a full snapshot of the domains.
const compactEvery = 64

// Solver searches for an assignment satisfying every constraint of a Model.
//
// Thread safety: Solver instances are NOT thread-safe. Create one Solver per
// goroutine; Models and Domains may be shared.
type Solver struct {
	model   *Model
	config  *SolverConfig
	monitor *SolverMonitor
	rng     *rand.Rand

	vars        []Var
	index       map[string]int
	initial     []Domain
	constraints []*node
	diveOrder   []int
	hints       map[int]float64

	// compileErr is reported by Solve when the model cannot be compiled.
	compileErr error
}

// SolverState is one node in a persistent chain of domain modifications.
// States are never mutated after creation, so branches share their prefix.
type SolverState struct {
	parent         *SolverState
	modifiedVarID  int
	modifiedDomain Domain
	depth          int

	// snapshot, when non-nil, holds every domain at this node.
	snapshot []Domain
}

// NewSolver creates a solver for the given model.
// The model should be fully constructed before creating the solver.
func NewSolver(model *Model) *Solver {
	return NewSolverWithConfig(model, nil)
}

// NewSolverWithConfig creates a solver with custom configuration that overrides model config.
func NewSolverWithConfig(model *Model, config *SolverConfig) *Solver {
	if config == nil {
		config = model.Config()
	}
	s := &Solver{
		model:  model,
		config: config,
		rng:    rand.New(rand.NewPCG(uint64(config.RandomSeed), 0x9e3779b97f4a7c15)),
		vars:   model.Variables(),
		index:  make(map[string]int),
	}
	for i, v := range s.vars {
		s.index[v.name] = i
	}
	s.initial = s.initialDomains()
	for _, c := range model.Constraints() {
		n, err := compile(c, s.index, false)
		if err != nil {
			s.compileErr = fmt.Errorf("compile %s: %w", c, err)
			break
		}
		s.constraints = append(s.constraints, n)
	}
	return s
}

func (s *Solver) initialDomains() []Domain {
	var literals []string
	for _, c := range s.model.Constraints() {
		literals = append(literals, c.Literals()...)
	}
	textVars := 0
	for _, v := range s.vars {
		if v.kind == KindString {
			textVars++
		}
	}
	// Text variables range over the literals they can be compared with plus
	// enough fresh values to differ from all of them and from each other.
	text := NewSetDomain(literals...)
	pool := append([]string(nil), literals...)
	for i, added := 0, 0; added <= textVars; i++ {
		fresh := ""
		if i > 0 {
			fresh = fmt.Sprintf("s%d", i-1)
		}
		if !text.Has(fresh) {
			pool = append(pool, fresh)
			added++
		}
	}
	text = NewSetDomain(pool...)

	out := make([]Domain, len(s.vars))
	for i, v := range s.vars {
		if i < len(s.model.domains) && s.model.domains[i] != nil {
			out[i] = s.model.domains[i]
			continue
		}
		switch v.kind {
		case KindInt:
			out[i] = NewIntDomain(-s.config.IntBound, s.config.IntBound)
		case KindReal:
			out[i] = NewRealDomain(-s.config.RealBound, s.config.RealBound)
		case KindString:
			out[i] = text
		}
	}
	return out
}

// SetMonitor enables statistics collection during solving.
func (s *Solver) SetMonitor(monitor *SolverMonitor) {
	s.monitor = monitor
}

// GetDomain returns the current domain of a variable in the given state.
// A nil state denotes the initial domains.
func (s *Solver) GetDomain(state *SolverState, varID int) Domain {
	for cur := state; cur != nil; cur = cur.parent {
		if cur.snapshot != nil {
			return cur.snapshot[varID]
		}
		if cur.modifiedVarID == varID {
			return cur.modifiedDomain
		}
	}
	return s.initial[varID]
}

// SetDomain creates a new state with an updated domain for the specified variable.
// Returns the new state and a boolean indicating if the domain actually changed.
// If the domain is identical to the current domain, returns the original state
// and false to avoid unnecessary propagation.
func (s *Solver) SetDomain(state *SolverState, varID int, domain Domain) (*SolverState, bool) {
	if s.GetDomain(state, varID).Equal(domain) {
		return state, false
	}
	next := &SolverState{parent: state, modifiedVarID: varID, modifiedDomain: domain, depth: 1}
	if state != nil {
		next.depth = state.depth + 1
	}
	if next.depth%compactEvery == 0 {
		snap := make([]Domain, len(s.vars))
		for i := range snap {
			snap[i] = s.GetDomain(state, i)
		}
		snap[varID] = domain
		next.snapshot = snap
	}
	return next, true
}

// update is SetDomain for propagators: ok is false only when domain is empty.
func (s *Solver) update(state *SolverState, varID int, domain Domain) (*SolverState, bool) {
	if domain.Empty() {
		return state, false
	}
	next, _ := s.SetDomain(state, varID, domain)
	return next, true
}

// propagate runs every constraint until no domain changes. ok is false when
// some constraint cannot hold. Reaching PropagationLimit is not a failure:
// the domains reached so far are still a sound over-approximation.
func (s *Solver) propagate(state *SolverState) (*SolverState, bool) {
	var start time.Time
	if s.monitor != nil {
		start = time.Now()
		defer func() { s.monitor.RecordPropagation(time.Since(start)) }()
	}
	limit := s.config.PropagationLimit
	if limit <= 0 {
		limit = 100
	}
	cur := state
	for iteration := 0; iteration < limit; iteration++ {
		before := cur
		for _, c := range s.constraints {
			next, ok := s.enforce(c, cur)
			if !ok {
				return nil, false
			}
			cur = next
		}
		if cur == before {
			break
		}
	}
	return cur, true
}

// Solve searches for one assignment satisfying every constraint.
//
// StatusUnsat is a proof (up to the real tolerance) that no assignment
// exists within the variable bounds. When the node limit or the context
// stops the search, Solve returns StatusUnknown together with
// ErrSearchLimitReached.
func (s *Solver) Solve(ctx context.Context, opts ...SolveOption) (*Result, error) {
	cfg := s.options(opts)
	if err := s.prepare(cfg); err != nil {
		return nil, err
	}
	ctx, cancel := cfg.bound(ctx)
	defer cancel()
	if s.monitor != nil {
		defer s.monitor.FinishSearch()
	}
	return s.search(ctx, cfg)
}

func (s *Solver) prepare(cfg solveConfig) error {
	if err := s.model.Validate(); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if s.compileErr != nil {
		return s.compileErr
	}
	s.hints = make(map[int]float64, len(cfg.hints))
	for name, h := range cfg.hints {
		if id, ok := s.index[name]; ok && s.vars[id].kind.Numeric() {
			s.hints[id] = h
		}
	}
	// Hinted variables are fixed first so that the rest adapt to them.
	s.diveOrder = s.diveOrder[:0]
	for id := range s.vars {
		if _, ok := s.hints[id]; ok {
			s.diveOrder = append(s.diveOrder, id)
		}
	}
	for id := range s.vars {
		if _, ok := s.hints[id]; !ok {
			s.diveOrder = append(s.diveOrder, id)
		}
	}
	return nil
}

type frame struct {
	state *SolverState
	level int
}

func (s *Solver) search(ctx context.Context, cfg solveConfig) (*Result, error) {
	root, ok := s.propagate(nil)
	if !ok {
		return &Result{Status: StatusUnsat}, nil
	}
	stack := []frame{{state: root}}
	nodes := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return &Result{Status: StatusUnknown, Nodes: nodes}, fmt.Errorf("%w: %w", ErrSearchLimitReached, err)
		}
		if cfg.nodeLimit > 0 && nodes >= cfg.nodeLimit {
			return &Result{Status: StatusUnknown, Nodes: nodes}, ErrSearchLimitReached
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++
		if s.monitor != nil {
			s.monitor.RecordNode()
			s.monitor.RecordDepth(f.level)
		}

		vals, stuck, ok := s.dive(f.state)
		if ok {
			if s.monitor != nil {
				s.monitor.RecordSolution()
			}
			return &Result{Status: StatusSat, Assignment: s.assignment(vals), Nodes: nodes, values: vals}, nil
		}

		id := stuck
		if id < 0 || s.GetDomain(f.state, id).IsSingleton() {
			id = s.selectVariable(f.state)
		}
		if id < 0 {
			if s.monitor != nil {
				s.monitor.RecordBacktrack()
			}
			continue
		}
		children := s.split(f.state, id)
		for i := len(children) - 1; i >= 0; i-- {
			child, ok := s.propagate(children[i])
			if !ok {
				if s.monitor != nil {
					s.monitor.RecordBacktrack()
				}
				continue
			}
			stack = append(stack, frame{state: child, level: f.level + 1})
		}
	}
	return &Result{Status: StatusUnsat, Nodes: nodes}, nil
}

// dive greedily fixes every variable, returning the values when the
// resulting point satisfies all constraints exactly. When a hinted
// variable cannot take any candidate, stuck is its id so the search
// bisects it toward the hint; otherwise stuck is -1.
func (s *Solver) dive(state *SolverState) (vals []Value, stuck int, ok bool) {
	if s.monitor != nil {
		s.monitor.RecordDive()
	}
	cur := state
	for _, id := range s.diveOrder {
		d := s.GetDomain(cur, id)
		if d.IsSingleton() {
			continue
		}
		fixed := false
		for _, v := range s.candidates(id, d) {
			next, ok := s.update(cur, id, singletonDomain(s.vars[id].kind, v))
			if !ok {
				continue
			}
			if next, ok = s.propagate(next); ok {
				cur = next
				fixed = true
				break
			}
		}
		if !fixed {
			if _, hinted := s.hints[id]; hinted {
				return nil, id, false
			}
			return nil, -1, false
		}
	}
	vals = s.extract(cur)
	if !s.satisfies(vals) {
		return nil, -1, false
	}
	return vals, -1, true
}

func (s *Solver) extract(state *SolverState) []Value {
	vals := make([]Value, len(s.vars))
	for id := range s.vars {
		vals[id] = s.GetDomain(state, id).Value()
	}
	return vals
}

func (s *Solver) satisfies(vals []Value) bool {
	for _, c := range s.constraints {
		v, ok := c.eval(vals)
		if !ok || !v.b {
			return false
		}
	}
	return true
}

func (s *Solver) assignment(vals []Value) Assignment {
	a := make(Assignment, len(vals))
	for id, v := range vals {
		a[s.vars[id].name] = v
	}
	return a
}

// candidates lists the values a dive tries for a variable, best first.
func (s *Solver) candidates(id int, d Domain) []Value {
	if sd, ok := d.(*SetDomain); ok {
		vals := sd.Values()
		if s.config.ValueHeuristic == ValueOrderRandom {
			vals = append([]string(nil), vals...)
			s.rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
		}
		out := make([]Value, 0, min(len(vals), 4))
		for _, v := range vals[:min(len(vals), 4)] {
			out = append(out, StringValue(v))
		}
		return out
	}

	kind := s.vars[id].kind
	iv := d.Bounds()
	p := s.preferred(id, iv)
	points := []float64{p}
	if kind == KindReal {
		// Strict inequalities exclude the boundary itself.
		delta := math.Max(1e-6, 1e-9*math.Abs(p))
		points = append(points, iv.Clamp(p+delta), iv.Clamp(p-delta))
	}
	// A hinted variable never jumps to the far ends of its domain: when the
	// hint fails the search bisects toward it instead.
	if _, hinted := s.hints[id]; !hinted {
		points = append(points, iv.Lo, iv.Hi)
		if kind == KindReal {
			points = append(points, iv.Mid())
		}
	}

	out := make([]Value, 0, len(points))
	seen := make(map[float64]bool, len(points))
	for _, x := range points {
		if seen[x] || math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		seen[x] = true
		if kind == KindInt {
			out = append(out, IntValue(int64(x)))
		} else {
			out = append(out, RealValue(x))
		}
	}
	return out
}

// preferred returns the value of iv the search should try first for a variable.
func (s *Solver) preferred(id int, iv Interval) float64 {
	p := 0.0
	if h, ok := s.hints[id]; ok {
		p = h
	} else if s.config.ValueHeuristic == ValueOrderRandom {
		p = s.randomPoint(iv, s.vars[id].kind)
	}
	if s.vars[id].kind == KindInt {
		p = math.Round(p)
	}
	return iv.Clamp(p)
}

// randomWindow keeps random values near zero unless the domain forbids it.
const randomWindow = 1000

func (s *Solver) randomPoint(iv Interval, kind Kind) float64 {
	lo, hi := math.Max(iv.Lo, -randomWindow), math.Min(iv.Hi, randomWindow)
	if lo > hi {
		if iv.Lo > randomWindow {
			lo, hi = iv.Lo, math.Min(iv.Hi, iv.Lo+randomWindow)
		} else {
			lo, hi = math.Max(iv.Lo, iv.Hi-randomWindow), iv.Hi
		}
	}
	if kind == KindInt || hi-lo >= 1 {
		lo, hi = math.Ceil(lo), math.Floor(hi)
		if hi < lo {
			return lo
		}
		return lo + float64(s.rng.Int64N(int64(hi-lo)+1))
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// selectVariable picks the variable to branch on: text variables with the
// fewest candidates first, then the numeric variable with the widest domain.
// It returns -1 when every variable is fixed.
func (s *Solver) selectVariable(state *SolverState) int {
	best, bestCount := -1, math.MaxInt
	for id := range s.vars {
		if sd, ok := s.GetDomain(state, id).(*SetDomain); ok && sd.Count() > 1 && sd.Count() < bestCount {
			best, bestCount = id, sd.Count()
		}
	}
	if best >= 0 {
		return best
	}
	widest := 0.0
	for id := range s.vars {
		d := s.GetDomain(state, id)
		if _, ok := d.(*IntervalDomain); !ok || d.IsSingleton() {
			continue
		}
		if w := d.Bounds().Width(); best < 0 || w > widest {
			best, widest = id, w
		}
	}
	return best
}

// split returns the child states of a branching on variable id, preferred first.
func (s *Solver) split(state *SolverState, id int) []*SolverState {
	d := s.GetDomain(state, id)
	if sd, ok := d.(*SetDomain); ok {
		var out []*SolverState
		for _, v := range s.candidatesAll(sd) {
			if child, ok := s.update(state, id, NewSetDomain(v)); ok {
				out = append(out, child)
			}
		}
		return out
	}

	dom := d.(*IntervalDomain)
	iv := dom.Bounds()
	var lower, upper Interval
	if dom.kind == KindInt {
		mid := math.Floor(iv.Lo + (iv.Hi-iv.Lo)/2)
		lower, upper = Interval{iv.Lo, mid}, Interval{mid + 1, iv.Hi}
	} else {
		mid := iv.Mid()
		lower, upper = Interval{iv.Lo, mid}, Interval{mid, iv.Hi}
	}
	first, second := lower, upper
	if p := s.preferred(id, iv); p > lower.Hi {
		first, second = upper, lower
	}
	var out []*SolverState
	for _, half := range []Interval{first, second} {
		if child, ok := s.update(state, id, dom.Narrow(half)); ok {
			out = append(out, child)
		}
	}
	return out
}

func (s *Solver) candidatesAll(sd *SetDomain) []string {
	vals := append([]string(nil), sd.Values()...)
	if s.config.ValueHeuristic == ValueOrderRandom {
		s.rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
	}
	return vals
}
