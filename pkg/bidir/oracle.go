package bidir

import (
	"context"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Executor runs the fragment forward: given values for its inputs it
// returns the values of its outputs as printed by the executed program.
type Executor interface {
	Execute(ctx context.Context, inputs symbolic.RawAssignment) (symbolic.RawAssignment, error)
}

// Inverter proposes inputs expected to produce target outputs.
type Inverter interface {
	// Harness runs a previously synthesised inverse program.
	Harness(ctx context.Context, target symbolic.RawAssignment) (symbolic.RawAssignment, error)
	// Guess asks a generative model directly.
	Guess(ctx context.Context, target symbolic.RawAssignment) (symbolic.RawAssignment, error)
}

// Strategy names the way an input candidate was obtained.
type Strategy int

const (
	StrategyNone Strategy = iota
	ViaHarness
	ViaGuess
	ViaSolver
)

func (s Strategy) String() string {
	switch s {
	case ViaHarness:
		return "harness"
	case ViaGuess:
		return "guess"
	case ViaSolver:
		return "solver"
	}
	return "none"
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, inputs symbolic.RawAssignment) (symbolic.RawAssignment, error)

func (f ExecutorFunc) Execute(ctx context.Context, inputs symbolic.RawAssignment) (symbolic.RawAssignment, error) {
	return f(ctx, inputs)
}
