package bidir

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted is returned when every retry budget ran out without an
// input that satisfies both the precondition and the postcondition.
var ErrBudgetExhausted = errors.New("search budget exhausted")

// ErrAlreadyExecuted marks an inverter proposal that was skipped because
// the same inputs were run before.
var ErrAlreadyExecuted = errors.New("inputs already executed")

// OracleFailure reports a failed oracle call: a compile error, a crashed
// or timed out run, an unparsable result or a failed model query. The
// controller treats it as a failed round and keeps searching.
type OracleFailure struct {
	Stage  string // "generate", "compile", "run", "parse" or "query"
	Detail string
	Err    error
}

func (e *OracleFailure) Error() string {
	msg := "oracle " + e.Stage + " failed"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OracleFailure) Unwrap() error { return e.Err }

// IsOracleFailure reports whether err is or wraps an *OracleFailure.
func IsOracleFailure(err error) bool {
	var of *OracleFailure
	return errors.As(err, &of)
}
