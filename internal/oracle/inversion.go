package oracle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// SeedContext is the constraint text shown to the model when it proposes
// the first guess of a run.
type SeedContext struct {
	PreConstraints  string
	PostConstraints string
	PreCandidate    symbolic.RawAssignment
}

// InversionOracle proposes fragment inputs for target outputs, either by
// running a model-generated inverse program or by asking the model.
type InversionOracle struct {
	client   Client
	runner   *Runner
	scripts  *ScriptDir
	fragment Fragment
	seed     *SeedContext
	logger   *zap.Logger

	mu      sync.Mutex
	inverse *Harness
	guesses int
}

// NewInversionOracle creates an oracle. With a non-nil seed the first
// guess uses the constraint-aware prompt.
func NewInversionOracle(client Client, runner *Runner, scripts *ScriptDir, fragment Fragment, seed *SeedContext, logger *zap.Logger) *InversionOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InversionOracle{
		client:   client,
		runner:   runner,
		scripts:  scripts,
		fragment: fragment,
		seed:     seed,
		logger:   logger.Named("inverse"),
	}
}

// Harness implements bidir.Inverter by running the inverse program.
func (o *InversionOracle) Harness(ctx context.Context, target symbolic.RawAssignment) (symbolic.RawAssignment, error) {
	h, err := o.ensureInverse(ctx)
	if err != nil {
		return nil, err
	}
	code, err := h.Instantiate(target)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: "instantiate inverse", Err: err}
	}
	path, err := o.scripts.Write(code)
	if err != nil {
		return nil, err
	}
	stdout, err := o.runner.CompileAndRun(ctx, "inverse", path)
	if err != nil {
		return nil, err
	}
	res, err := ParseResult(stdout)
	if err == nil {
		res, err = requireNames(res, o.fragment.InputNames())
	}
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "parse", Detail: firstLines(stdout, 3), Err: err}
	}
	o.logger.Debug("inverted", zap.String("script", path), zap.Stringer("target", target), zap.Stringer("inputs", res))
	return res, nil
}

// Guess implements bidir.Inverter by asking the model.
func (o *InversionOracle) Guess(ctx context.Context, target symbolic.RawAssignment) (symbolic.RawAssignment, error) {
	o.mu.Lock()
	first := o.guesses == 0
	o.guesses++
	o.mu.Unlock()

	data := guessData{
		Fragment: o.fragment.Code,
		Inputs:   o.fragment.Inputs,
		Outputs:  o.fragment.Outputs,
		Target:   target.String(),
	}
	name, parse := "guess", ParseInputPairs
	if first && o.seed != nil {
		data.PreConstraints = o.seed.PreConstraints
		data.PostConstraints = o.seed.PostConstraints
		data.PreCandidate = o.seed.PreCandidate.String()
		name, parse = "seed", ParseAssignmentBlock
	}
	prompt, err := render(name, data)
	if err != nil {
		return nil, err
	}
	reply, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "query", Detail: name, Err: err}
	}
	res, err := parse(reply, o.fragment.InputNames())
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "parse", Detail: name, Err: err}
	}
	o.logger.Debug("guessed", zap.String("prompt", name), zap.Stringer("target", target), zap.Stringer("inputs", res))
	return res, nil
}

func (o *InversionOracle) ensureInverse(ctx context.Context) (*Harness, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inverse != nil {
		return o.inverse, nil
	}
	prompt, err := render("inverse", inverseData{Fragment: o.fragment.Code, Inputs: o.fragment.Inputs, Outputs: o.fragment.Outputs})
	if err != nil {
		return nil, err
	}
	reply, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "query", Detail: "inverse program", Err: err}
	}
	code, err := ExtractCode(reply)
	if err != nil {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: "inverse program", Err: err}
	}
	h := &Harness{Source: code, Vars: o.fragment.OutputNames()}
	if missing := h.Missing(); len(missing) > 0 {
		return nil, &bidir.OracleFailure{Stage: "generate", Detail: fmt.Sprintf("inverse program lacks placeholders for %v", missing)}
	}
	if _, err := o.scripts.Save("inverted_solution.c", code); err != nil {
		return nil, err
	}
	o.inverse = h
	return h, nil
}

var (
	_ bidir.Executor = (*ExecutionOracle)(nil)
	_ bidir.Inverter = (*InversionOracle)(nil)
)
