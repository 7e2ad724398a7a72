package symbolic

import (
	"strings"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Coerce converts textual values into typed values using each variable's
// source type token: float and double tokens give Real values, int and
// long tokens give Integer values (parsed as reals and truncated, so
// "10.000000" is 10). A name without a type token takes the kind it has in
// env, defaulting to Integer. Any other token is rejected with an
// *UnsupportedTypeError.
func Coerce(raw RawAssignment, types TypeMap, env *Environment) (Assignment, error) {
	out := make(Assignment, len(raw))
	for _, rv := range raw {
		kind, err := coercionKind(rv.Name, types, env)
		if err != nil {
			return nil, err
		}
		v, err := solver.ParseValue(kind, rv.Text)
		if err != nil {
			return nil, &ParseError{Source: rv.Name + "=" + rv.Text, Err: err}
		}
		out[rv.Name] = v
	}
	return out, nil
}

func coercionKind(name string, types TypeMap, env *Environment) (Kind, error) {
	token, ok := types[name]
	if !ok || strings.TrimSpace(token) == "" {
		if v, declared := env.Lookup(name); declared && v.Kind() == Real {
			return Real, nil
		}
		return Integer, nil
	}
	t := strings.ToLower(token)
	switch {
	case strings.Contains(t, "float"), strings.Contains(t, "double"):
		return Real, nil
	case strings.Contains(t, "int"), strings.Contains(t, "long"):
		return Integer, nil
	}
	return 0, &UnsupportedTypeError{Name: name, Type: token}
}

// Augment pins variables to concrete values: for each binding of raw, in
// order, it appends the constraint name == value. Names missing from env
// are declared (Real for float and double tokens, Integer otherwise).
func Augment(set ConstraintSet, env *Environment, raw RawAssignment, types TypeMap) (ConstraintSet, *Environment, error) {
	vals, err := Coerce(raw, types, env)
	if err != nil {
		return set, env, err
	}
	var extra []Constraint
	for _, rv := range raw {
		val := vals[rv.Name]
		var v Variable
		env, v = env.Declare(rv.Name, val.Kind())
		extra = append(extra, NewConstraint(solver.Eq(solver.Ref(v), solver.Const(val))))
	}
	return set.With(extra...), env, nil
}
