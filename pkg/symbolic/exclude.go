package symbolic

import "github.com/gitrdm/seedsynth/pkg/solver"

// Exclude forbids one solution: it appends not(v1 == a1 and ... and vn == an).
// Names missing from env are declared with the kind of their value.
// Excluding an empty solution leaves the set unchanged.
func Exclude(set ConstraintSet, env *Environment, sol Assignment) (ConstraintSet, *Environment) {
	if len(sol) == 0 {
		return set, env
	}
	eqs := make([]*solver.Expr, 0, len(sol))
	for _, name := range sol.Keys() {
		val := sol[name]
		var v Variable
		env, v = env.Declare(name, val.Kind())
		eqs = append(eqs, solver.Eq(solver.Ref(v), solver.Const(val)))
	}
	return set.With(NewConstraint(solver.Not(solver.And(eqs...)))), env
}
