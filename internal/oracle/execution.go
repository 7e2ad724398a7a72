package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Fragment describes the code under test.
type Fragment struct {
	// Program is the enclosing program text.
	Program string
	// Code is the isolated fragment.
	Code    string
	Inputs  []Var
	Outputs []Var
}

// InputNames returns the input variable names.
func (f Fragment) InputNames() []string { return names(f.Inputs) }

// OutputNames returns the output variable names.
func (f Fragment) OutputNames() []string { return names(f.Outputs) }

func names(vars []Var) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

// ExecutionOracle runs the fragment forward through a model-generated
// harness. The harness is generated on first use from an example input
// assignment, its input assignments are turned into placeholders, and
// each call instantiates, compiles and runs a fresh copy.
type ExecutionOracle struct {
	client   Client
	runner   *Runner
	scripts  *ScriptDir
	fragment Fragment
	example  symbolic.RawAssignment
	logger   *zap.Logger

	mu      sync.Mutex
	harness *Harness
}

// NewExecutionOracle creates an oracle writing its programs to scripts.
// example is a precondition solution shown to the model as context.
func NewExecutionOracle(client Client, runner *Runner, scripts *ScriptDir, fragment Fragment, example symbolic.RawAssignment, logger *zap.Logger) *ExecutionOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionOracle{
		client:   client,
		runner:   runner,
		scripts:  scripts,
		fragment: fragment,
		example:  example,
		logger:   logger.Named("forward"),
	}
}

// Execute implements bidir.Executor.
func (o *ExecutionOracle) Execute(ctx context.Context, inputs symbolic.RawAssignment) (symbolic.RawAssignment, error) {
	h, err := o.ensureHarness(ctx)
	if err != nil {
		return nil, err
	}
	code, err := h.Instantiate(inputs)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: "instantiate harness", Err: err}
	}
	path, err := o.scripts.Write(code)
	if err != nil {
		return nil, err
	}
	stdout, err := o.runner.CompileAndRun(ctx, "forward", path)
	if err != nil {
		return nil, err
	}
	out, err := ParseResult(stdout)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "parse", Detail: firstLines(stdout, 3), Err: err}
	}
	if projected := out.Project(o.fragment.OutputNames()); len(projected) > 0 {
		out = projected
	} else {
		return nil, &bidir.OracleFailure{Stage: "parse", Detail: fmt.Sprintf("no output variable in %q", out.String())}
	}
	if err := o.checkOutputs(out); err != nil {
		return nil, &bidir.OracleFailure{Stage: "parse", Detail: out.String(), Err: err}
	}
	o.logger.Debug("executed", zap.String("script", path), zap.Stringer("inputs", inputs), zap.Stringer("outputs", out))
	return out, nil
}

// checkOutputs rejects printed values that do not parse as the declared
// type of their output variable. Outputs of unsupported types pass through.
func (o *ExecutionOracle) checkOutputs(out symbolic.RawAssignment) error {
	types := make(symbolic.TypeMap, len(o.fragment.Outputs))
	for _, v := range o.fragment.Outputs {
		types[v.Name] = v.Type
	}
	for _, rv := range out {
		_, err := symbolic.Coerce(symbolic.RawAssignment{rv}, types, symbolic.EmptyEnvironment())
		var pe *symbolic.ParseError
		if errors.As(err, &pe) {
			return err
		}
	}
	return nil
}

// Harness returns the generated harness, generating it if needed.
func (o *ExecutionOracle) Harness(ctx context.Context) (*Harness, error) {
	return o.ensureHarness(ctx)
}

func (o *ExecutionOracle) ensureHarness(ctx context.Context) (*Harness, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.harness != nil {
		return o.harness, nil
	}
	prompt, err := render("runnable", runnableData{
		Program:     o.fragment.Program,
		Fragment:    o.fragment.Code,
		Assignments: o.example.String(),
		Outputs:     o.fragment.Outputs,
	})
	if err != nil {
		return nil, err
	}
	reply, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "query", Detail: "runnable harness", Err: err}
	}
	code, err := CleanCReply(reply)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: "runnable harness", Err: err}
	}
	h := &Harness{Source: InsertPlaceholders(code, o.fragment.InputNames()), Vars: o.fragment.InputNames()}
	if missing := h.Missing(); len(missing) > 0 {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: fmt.Sprintf("harness does not assign %v", missing)}
	}
	if _, err := o.scripts.Save("modified_script.c", h.Source); err != nil {
		return nil, err
	}
	o.harness = h
	return h, nil
}
