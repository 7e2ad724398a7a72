// Package symbolic manages typed constraint sets over symbolic variables and
// the queries run against them: diverse sampling, median selection,
// augmentation with concrete values, exclusion of known solutions,
// nearest-feasible refinement and satisfaction checks.
//
// Every value in this package is immutable. Operations that "add" to an
// Environment or a ConstraintSet return a new one and leave the argument
// untouched, so callers may keep and reuse earlier versions freely.
package symbolic

import (
	"sort"
	"strings"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Kind is the type of a symbolic variable.
type Kind = solver.Kind

const (
	Integer = solver.KindInt
	Real    = solver.KindReal
	Text    = solver.KindString
)

// Variable is a named, typed symbolic variable.
type Variable = solver.Var

// TypeMap maps variable names to source-language type tokens such as
// "int", "double" or "char*".
type TypeMap map[string]string

// KindOf maps a type token to a variable kind: tokens mentioning float or
// double are Real, tokens mentioning string are Text, everything else
// (including an empty token) is Integer.
func KindOf(token string) Kind {
	t := strings.ToLower(token)
	switch {
	case strings.Contains(t, "float"), strings.Contains(t, "double"):
		return Real
	case strings.Contains(t, "string"):
		return Text
	}
	return Integer
}

// Environment maps names to variables. Names are unique and a name's kind
// never changes once declared.
type Environment struct {
	parent *Environment
	vars   map[string]Variable
	order  []string
	size   int
}

var emptyEnvironment = &Environment{}

// EmptyEnvironment returns the environment with no variables.
func EmptyEnvironment() *Environment { return emptyEnvironment }

// Lookup returns the variable named name.
func (e *Environment) Lookup(name string) (Variable, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return Variable{}, false
}

// Declare returns an environment containing name. When name already
// exists the receiver is returned unchanged together with the existing
// variable, whatever kind was requested.
func (e *Environment) Declare(name string, kind Kind) (*Environment, Variable) {
	if v, ok := e.Lookup(name); ok {
		return e, v
	}
	v := solver.NewVar(name, kind)
	return &Environment{
		parent: e,
		vars:   map[string]Variable{name: v},
		order:  []string{name},
		size:   e.size + 1,
	}, v
}

// DeclareAll declares every name with the kind its type token maps to,
// in sorted name order.
func (e *Environment) DeclareAll(names []string, types TypeMap) *Environment {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	env := e
	for _, n := range sorted {
		env, _ = env.Declare(n, KindOf(types[n]))
	}
	return env
}

// Len returns the number of variables.
func (e *Environment) Len() int { return e.size }

// Names returns every variable name in declaration order.
func (e *Environment) Names() []string {
	var chain []*Environment
	for cur := e; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := make([]string, 0, e.size)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].order...)
	}
	return out
}

// Variables returns every variable in declaration order.
func (e *Environment) Variables() []Variable {
	names := e.Names()
	out := make([]Variable, len(names))
	for i, n := range names {
		out[i], _ = e.Lookup(n)
	}
	return out
}

func (e *Environment) String() string {
	vars := e.Variables()
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
