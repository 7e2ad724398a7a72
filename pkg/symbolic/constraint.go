package symbolic

import (
	"iter"
	"slices"
	"strings"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Constraint is one bound boolean expression together with the text it was read from.
type Constraint struct {
	source string
	expr   *solver.Expr
}

// NewConstraint wraps a bound predicate.
func NewConstraint(e *solver.Expr) Constraint {
	return Constraint{source: e.String(), expr: e}
}

// Expr returns the bound expression.
func (c Constraint) Expr() *solver.Expr { return c.expr }

// String returns the source text, or the rendered expression for generated constraints.
func (c Constraint) String() string { return c.source }

// ConstraintSet is an ordered, immutable collection of constraints
// interpreted as their conjunction. The zero value is the empty set.
type ConstraintSet struct {
	items []Constraint
}

// NewConstraintSet returns a set holding cs.
func NewConstraintSet(cs ...Constraint) ConstraintSet {
	return ConstraintSet{items: slices.Clone(cs)}
}

// With returns a new set with cs appended. The receiver is not modified.
func (s ConstraintSet) With(cs ...Constraint) ConstraintSet {
	return ConstraintSet{items: slices.Concat(s.items, cs)}
}

// Len returns the number of constraints.
func (s ConstraintSet) Len() int { return len(s.items) }

// At returns the i-th constraint.
func (s ConstraintSet) At(i int) Constraint { return s.items[i] }

// All iterates over the constraints in order.
func (s ConstraintSet) All() iter.Seq2[int, Constraint] {
	return slices.All(s.items)
}

// Vars returns the names of every variable the constraints reference, in
// order of first appearance.
func (s ConstraintSet) Vars() []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range s.items {
		for _, n := range c.expr.Vars() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Satisfied reports whether a satisfies every constraint. Variables a
// constraint needs but a lacks make that constraint false.
func (s ConstraintSet) Satisfied(a Assignment) bool {
	for _, c := range s.items {
		if !solver.Holds(c.expr, a) {
			return false
		}
	}
	return true
}

func (s ConstraintSet) String() string {
	lines := make([]string, len(s.items))
	for i, c := range s.items {
		lines[i] = c.source
	}
	return strings.Join(lines, "\n")
}
