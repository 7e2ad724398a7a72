package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchLimitReached is returned when the node limit or deadline cut a
	// search short. Any incumbent found so far is still returned alongside it.
	ErrSearchLimitReached = errors.New("search limit reached")

	// ErrKindConflict is returned when a name is declared twice with different kinds.
	ErrKindConflict = errors.New("variable redeclared with a different kind")

	// ErrUnknownVariable is returned when an expression references a variable
	// the model does not declare.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrNotPredicate is returned when a non-boolean expression is used as a constraint.
	ErrNotPredicate = errors.New("constraint is not a predicate")
)

// SyntaxError reports malformed constraint text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// TypeError reports an ill-typed or unresolved expression.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return "type error: " + e.Msg }
