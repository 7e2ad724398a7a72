package symbolic

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible means the hard constraints admit no solution.
	ErrInfeasible = errors.New("constraints are infeasible")

	// ErrNoConstraints is returned when a constraint source yields no usable constraint.
	ErrNoConstraints = errors.New("no valid constraints")
)

// ParseError describes constraint text that could not be parsed or typed.
// Line is 1-based; zero when the text did not come from a file.
type ParseError struct {
	Line   int
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Source, e.Err)
	}
	return fmt.Sprintf("%q: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedTypeError is returned when a concrete value of a non-numeric
// source type is used to augment a constraint set.
type UnsupportedTypeError struct {
	Name string
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("variable %s: unsupported type %q", e.Name, e.Type)
}
