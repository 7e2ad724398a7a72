package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Report summarises a run. It is written as YAML to the run folder.
type Report struct {
	RunID string `yaml:"run_id"`
	Name  string `yaml:"name,omitempty"`
	Dir   string `yaml:"dir"`

	// Outcome is accepted, exhausted, infeasible or error.
	Outcome  string `yaml:"outcome"`
	Accepted bool   `yaml:"accepted"`
	Final    string `yaml:"final_state,omitempty"`
	Error    string `yaml:"error,omitempty"`

	Types      symbolic.TypeMap `yaml:"types,omitempty"`
	Rejected   int              `yaml:"rejected_lines"`
	InputVars  []string         `yaml:"input_vars,omitempty"`
	OutputVars []string         `yaml:"output_vars,omitempty"`

	Inputs  string   `yaml:"inputs,omitempty"`
	Outputs string   `yaml:"outputs,omitempty"`
	Trace   []string `yaml:"trace,omitempty"`
}

// Outcome labels.
const (
	OutcomeAccepted   = "accepted"
	OutcomeExhausted  = "exhausted"
	OutcomeInfeasible = "infeasible"
	OutcomeError      = "error"
)

func (r *Report) fill(res *bidir.Result, err error) {
	switch {
	case err == nil:
		r.Outcome = OutcomeAccepted
	case errors.Is(err, bidir.ErrBudgetExhausted):
		r.Outcome = OutcomeExhausted
	case errors.Is(err, symbolic.ErrInfeasible):
		r.Outcome = OutcomeInfeasible
	default:
		r.Outcome = OutcomeError
	}
	if err != nil {
		r.Error = err.Error()
	}
	if res == nil {
		return
	}
	r.Accepted = res.Accepted
	r.Final = res.Final.String()
	r.Inputs = res.Inputs.String()
	r.Outputs = res.Outputs.String()
	r.Trace = make([]string, len(res.Trace))
	for i, a := range res.Trace {
		r.Trace[i] = a.String()
	}
}

// Write stores the report at path.
func (r *Report) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by Write.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
