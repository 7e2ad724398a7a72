// Command seedsynth searches for inputs that drive a code fragment from a
// precondition to a postcondition, and exposes the constraint tooling it
// is built on.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gitrdm/seedsynth/internal/pipeline"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitNoInput = 2
)

// searchFailure marks an error as a completed search without a result.
type searchFailure struct{ err error }

func (e *searchFailure) Error() string { return e.err.Error() }
func (e *searchFailure) Unwrap() error { return e.err }

func exitCode(err error) int {
	var sf *searchFailure
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &sf), pipeline.IsSearchFailure(err):
		return exitNoInput
	}
	return exitUsage
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
