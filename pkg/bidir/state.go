package bidir

import (
	"fmt"
	"strings"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// State is a controller state.
type State int

const (
	SeedSelection State = iota
	ForwardExecute
	PostCheck
	Invert
	PreCheck
	Accept
	ExhaustedRetry
	ExhaustedPotential
)

var stateNames = [...]string{
	SeedSelection:      "seed_selection",
	ForwardExecute:     "forward_execute",
	PostCheck:          "post_check",
	Invert:             "invert",
	PreCheck:           "pre_check",
	Accept:             "accept",
	ExhaustedRetry:     "exhausted_retry",
	ExhaustedPotential: "exhausted_potential",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the controller stops in s.
func (s State) Terminal() bool { return s == Accept || s == ExhaustedPotential }

// Attempt is one entry of the attempt trace.
type Attempt struct {
	Potential int // 1-based seed round
	Round     int // 1-based outer retry within the seed round, 0 during seed selection
	Inner     int // 1-based inversion retry, 0 outside the Invert loop
	State     State
	Strategy  Strategy

	Inputs    symbolic.RawAssignment
	Outputs   symbolic.RawAssignment
	Satisfied bool
	Err       error
}

func (a Attempt) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d.%d", a.Potential, a.Round)
	if a.Inner > 0 {
		fmt.Fprintf(&sb, ".%d", a.Inner)
	}
	fmt.Fprintf(&sb, "] %s", a.State)
	if a.Strategy != StrategyNone {
		fmt.Fprintf(&sb, " via %s", a.Strategy)
	}
	if len(a.Inputs) > 0 {
		fmt.Fprintf(&sb, " in{%s}", a.Inputs)
	}
	if len(a.Outputs) > 0 {
		fmt.Fprintf(&sb, " out{%s}", a.Outputs)
	}
	if a.State == PreCheck || a.State == PostCheck {
		fmt.Fprintf(&sb, " satisfied=%t", a.Satisfied)
	}
	if a.Err != nil {
		fmt.Fprintf(&sb, " err=%v", a.Err)
	}
	return sb.String()
}

// Trace is the ordered list of attempts made by one run.
type Trace []Attempt

func (t Trace) String() string {
	lines := make([]string, len(t))
	for i, a := range t {
		lines[i] = a.String()
	}
	return strings.Join(lines, "\n")
}

// Count returns the number of attempts in state s.
func (t Trace) Count(s State) int {
	n := 0
	for _, a := range t {
		if a.State == s {
			n++
		}
	}
	return n
}

// Result is the outcome of a controller run.
type Result struct {
	RunID    string
	Accepted bool
	Final    State

	// Inputs and Outputs hold the accepted pair when Accepted is set.
	Inputs  symbolic.RawAssignment
	Outputs symbolic.RawAssignment

	Trace Trace
}
