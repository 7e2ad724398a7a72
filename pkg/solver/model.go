// Package solver is a small constraint solver over integers, reals and
// strings. Constraints are boolean expressions (see Parse); the solver
// combines interval propagation with bisection search, and Minimize adds
// branch-and-bound style objective tightening on top of Solve.
//
// This file defines the Model abstraction for declaratively building
// constraint satisfaction problems.
package solver

import (
	"fmt"
	"strings"
	"sync"
)

// Model represents a constraint satisfaction problem declaratively.
// A model consists of:
//   - Variables: typed decision variables with initial domains
//   - Constraints: bound boolean expressions over those variables
//   - Configuration: solver parameters and search heuristics
//
// Models are constructed incrementally. Once handed to a Solver the model
// must not change.
//
// Thread safety: Models are safe for concurrent reads during solving,
// but must be constructed sequentially.
type Model struct {
	// variables holds all decision variables in order of declaration
	variables []Var

	// index maps variable names to positions in variables
	index map[string]int

	// domains holds explicit initial domains; nil entries use the config defaults
	domains []Domain

	constraints []*Expr

	config *SolverConfig

	mu sync.RWMutex
}

// NewModel creates a new empty model with default configuration.
func NewModel() *Model {
	return NewModelWithConfig(nil)
}

// NewModelWithConfig creates a model with custom solver configuration.
func NewModelWithConfig(config *SolverConfig) *Model {
	if config == nil {
		config = DefaultSolverConfig()
	}
	return &Model{
		index:  make(map[string]int),
		config: config,
	}
}

// Declare adds v to the model and returns its index. Declaring an existing
// variable again is a no-op unless the kinds differ.
func (m *Model) Declare(v Var) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.declareLocked(v)
}

func (m *Model) declareLocked(v Var) (int, error) {
	if id, ok := m.index[v.name]; ok {
		if m.variables[id].kind != v.kind {
			return -1, fmt.Errorf("%w: %s is %v, not %v", ErrKindConflict, v.name, m.variables[id].kind, v.kind)
		}
		return id, nil
	}
	if v.kind == KindBool {
		return -1, fmt.Errorf("variable %s: boolean variables are not supported", v.name)
	}
	id := len(m.variables)
	m.variables = append(m.variables, v)
	m.domains = append(m.domains, nil)
	m.index[v.name] = id
	return id, nil
}

// AddConstraint posts a bound predicate, declaring every variable it references.
func (m *Model) AddConstraint(e *Expr) error {
	if e == nil {
		return fmt.Errorf("nil constraint")
	}
	if e.kind != KindBool {
		return fmt.Errorf("%w: %s", ErrNotPredicate, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var declare func(*Expr) error
	declare = func(n *Expr) error {
		switch n.op {
		case OpIdent:
			return &TypeError{Msg: fmt.Sprintf("unbound identifier %q", n.name)}
		case OpVar:
			_, err := m.declareLocked(Var{name: n.name, kind: n.kind})
			return err
		}
		for _, a := range n.args {
			if err := declare(a); err != nil {
				return err
			}
		}
		return nil
	}
	if err := declare(e); err != nil {
		return err
	}
	m.constraints = append(m.constraints, e)
	return nil
}

// SetDomain overrides the initial domain of a declared variable.
func (m *Model) SetDomain(name string, d Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	if d.Kind() != m.variables[id].kind {
		return fmt.Errorf("%w: domain %v for %v variable %s", ErrKindConflict, d.Kind(), m.variables[id].kind, name)
	}
	m.domains[id] = d
	return nil
}

// Variables returns the declared variables in declaration order.
func (m *Model) Variables() []Var {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Var, len(m.variables))
	copy(out, m.variables)
	return out
}

// Lookup returns the variable with the given name.
func (m *Model) Lookup(name string) (Var, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.index[name]
	if !ok {
		return Var{}, false
	}
	return m.variables[id], true
}

// Constraints returns the posted constraints.
func (m *Model) Constraints() []*Expr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Expr, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// VariableCount returns the number of declared variables.
func (m *Model) VariableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.variables)
}

// ConstraintCount returns the number of posted constraints.
func (m *Model) ConstraintCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Config returns the model's solver configuration.
func (m *Model) Config() *SolverConfig { return m.config }

// Validate checks that the configured bounds are usable.
func (m *Model) Validate() error {
	if m.config.IntBound <= 0 {
		return fmt.Errorf("integer bound must be positive, got %d", m.config.IntBound)
	}
	if !(m.config.RealBound > 0) {
		return fmt.Errorf("real bound must be positive, got %g", m.config.RealBound)
	}
	for i, d := range m.domains {
		if d != nil && d.Empty() {
			return fmt.Errorf("variable %s has an empty initial domain", m.variables[i].name)
		}
	}
	return nil
}

// String returns a human-readable representation of the model.
func (m *Model) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model{vars: %d, constraints: %d}\n", len(m.variables), len(m.constraints))
	for _, v := range m.variables {
		fmt.Fprintf(&sb, "  %s\n", v)
	}
	for _, c := range m.constraints {
		fmt.Fprintf(&sb, "  %s\n", c)
	}
	return sb.String()
}
