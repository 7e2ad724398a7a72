// Package pipeline runs a complete search from files on disk: it scans
// the program for declarations, reads the constraint files, asks the
// model for the fragment's variables, builds the oracles and drives the
// controller. Each run writes its artefacts to its own folder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/internal/cdecl"
	"github.com/gitrdm/seedsynth/internal/config"
	"github.com/gitrdm/seedsynth/internal/oracle"
	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Files names the inputs of one problem.
type Files struct {
	Name     string `yaml:"name"`
	Fragment string `yaml:"fragment" validate:"required"`
	Program  string `yaml:"program" validate:"required"`
	Pre      string `yaml:"pre" validate:"required"`
	Post     string `yaml:"post" validate:"required"`
}

// Subdirectories of a run folder.
const (
	DirIOVars   = "io_vars"
	DirForward  = "modified_script"
	DirInverse  = "inverted_solutions"
	ReportFile  = "report.yaml"
	scriptsName = "script"
)

// Pipeline runs problems with one configuration.
type Pipeline struct {
	cfg     config.Config
	mu      sync.Mutex
	client  oracle.Client
	logger  *zap.Logger
	tracer  trace.Tracer
	scanner *cdecl.Scanner
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClient uses c instead of the configured model provider.
func WithClient(c oracle.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New creates a pipeline.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("github.com/gitrdm/seedsynth/internal/pipeline")
	}
	p.scanner = cdecl.NewScanner(p.logger.Named("cdecl"))
	return p
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Checker builds the satisfaction checker described by the configuration.
func (p *Pipeline) Checker() (*symbolic.Checker, error) {
	sc, err := p.cfg.SamplerConfig()
	if err != nil {
		return nil, err
	}
	rc, err := p.cfg.RefinerConfig()
	if err != nil {
		return nil, err
	}
	opts := p.cfg.SolverOptions()
	sampler := symbolic.NewSampler(sc, opts, p.logger.Named("sampler"))
	return symbolic.NewChecker(
		symbolic.NewMedianSelector(sampler, p.logger.Named("median")),
		symbolic.NewRefiner(rc, opts, p.logger.Named("refiner")),
		p.logger.Named("checker"),
	), nil
}

// Run solves one problem. The report is non-nil whenever the run folder
// was created, including failed searches; it is also written to the run
// folder.
func (p *Pipeline) Run(ctx context.Context, files Files) (*Report, error) {
	runID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("fragment", files.Fragment),
	))
	defer span.End()

	dir := filepath.Join(p.cfg.LogFolder, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run folder: %w", err)
	}
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.String("dir", dir), zap.String("fragment", files.Fragment))

	rep := &Report{RunID: runID, Name: files.Name, Dir: dir}
	res, err := p.run(ctx, files, runID, dir, rep, logger)
	rep.fill(res, err)
	if werr := rep.Write(filepath.Join(dir, ReportFile)); werr != nil {
		logger.Warn("could not write report", zap.Error(werr))
	}
	if err != nil {
		span.RecordError(err)
	}
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, files Files, runID, dir string, rep *Report, logger *zap.Logger) (*bidir.Result, error) {
	in, err := readInputs(files)
	if err != nil {
		return nil, err
	}

	types, err := p.scanTypes(ctx, in)
	if err != nil {
		return nil, err
	}
	rep.Types = types

	buildOpts := symbolic.BuildOptions{RequireConstraints: true, Logger: logger.Named("constraints")}
	preEnv, preSet, preErrs, err := symbolic.Build(in.pre, types, buildOpts)
	if err != nil {
		return nil, fmt.Errorf("precondition: %w", err)
	}
	postEnv, postSet, postErrs, err := symbolic.Build(in.post, types, buildOpts)
	if err != nil {
		return nil, fmt.Errorf("postcondition: %w", err)
	}
	rep.Rejected = len(preErrs) + len(postErrs)

	checker, err := p.Checker()
	if err != nil {
		return nil, err
	}
	preSol, err := firstSolution(ctx, checker, preSet, preEnv, "precondition")
	if err != nil {
		return nil, err
	}
	postSol, err := firstSolution(ctx, checker, postSet, postEnv, "postcondition")
	if err != nil {
		return nil, err
	}

	client, err := p.baseClient(ctx)
	if err != nil {
		return nil, err
	}
	ioClient, err := oracle.NewTranscriptClient(client, filepath.Join(dir, DirIOVars))
	if err != nil {
		return nil, err
	}
	inputs, outputs, err := oracle.IdentifyIOVars(ctx, ioClient, in.program, in.fragment, symbolic.Raw(preSol), symbolic.Raw(postSol))
	if err != nil {
		return nil, fmt.Errorf("identify fragment variables: %w", err)
	}
	rep.InputVars, rep.OutputVars = inputs, outputs
	logger.Info("fragment variables", zap.Strings("inputs", inputs), zap.Strings("outputs", outputs))

	fragment := oracle.Fragment{
		Program: in.program,
		Code:    in.fragment,
		Inputs:  oracle.ResolveTypes(inputs, types, p.cfg.FallbackType),
		Outputs: oracle.ResolveTypes(outputs, types, p.cfg.FallbackType),
	}
	forward, inverse, err := p.oracles(client, dir, fragment, preSet, postSet, preSol, logger)
	if err != nil {
		return nil, err
	}

	controller := bidir.NewController(checker, forward, inverse, bidir.Config{
		Budgets: p.cfg.Budgets,
		Seed:    p.cfg.Seed,
		RunID:   runID,
		Logger:  logger.Named("controller"),
	})
	return controller.Run(ctx, bidir.Problem{
		Pre:  bidir.Side{Env: preEnv, Set: preSet, Vars: inputs, Types: typeMap(fragment.Inputs)},
		Post: bidir.Side{Env: postEnv, Set: postSet, Vars: outputs, Types: typeMap(fragment.Outputs)},
	})
}

func (p *Pipeline) oracles(client oracle.Client, dir string, fragment oracle.Fragment, preSet, postSet symbolic.ConstraintSet, preSol symbolic.Assignment, logger *zap.Logger) (*oracle.ExecutionOracle, *oracle.InversionOracle, error) {
	runner := oracle.NewRunner(p.cfg.Runner, logger.Named("runner"))

	fwdScripts, err := oracle.NewScriptDir(filepath.Join(dir, DirForward), scriptsName)
	if err != nil {
		return nil, nil, err
	}
	fwdClient, err := oracle.NewTranscriptClient(client, filepath.Join(dir, DirForward, "transcript"))
	if err != nil {
		return nil, nil, err
	}
	example := symbolic.Raw(preSol).Project(fragment.InputNames())
	if len(example) == 0 {
		example = symbolic.Raw(preSol)
	}
	forward := oracle.NewExecutionOracle(fwdClient, runner, fwdScripts, fragment, example, logger)

	invScripts, err := oracle.NewScriptDir(filepath.Join(dir, DirInverse), scriptsName)
	if err != nil {
		return nil, nil, err
	}
	invClient, err := oracle.NewTranscriptClient(client, filepath.Join(dir, DirInverse, "transcript"))
	if err != nil {
		return nil, nil, err
	}
	seed := &oracle.SeedContext{
		PreConstraints:  preSet.String(),
		PostConstraints: postSet.String(),
		PreCandidate:    symbolic.Raw(preSol),
	}
	inverse := oracle.NewInversionOracle(invClient, runner, invScripts, fragment, seed, logger)
	return forward, inverse, nil
}

func (p *Pipeline) baseClient(ctx context.Context) (oracle.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := oracle.NewClient(ctx, p.cfg.LLM, p.logger)
	if err != nil {
		return nil, err
	}
	p.client = c
	return c, nil
}

// scanTypes merges the declarations of the program and the fragment. The
// program wins on conflicts.
func (p *Pipeline) scanTypes(ctx context.Context, in *inputs) (symbolic.TypeMap, error) {
	prog, err := p.scanner.Scan(ctx, []byte(in.program))
	if err != nil {
		return nil, fmt.Errorf("scan program: %w", err)
	}
	types := prog.Types()
	frag, err := p.scanner.Scan(ctx, []byte(in.fragment))
	if err != nil {
		return nil, fmt.Errorf("scan fragment: %w", err)
	}
	for name, token := range frag.Types() {
		if _, ok := types[name]; !ok {
			types[name] = token
		}
	}
	return types, nil
}

func firstSolution(ctx context.Context, checker *symbolic.Checker, set symbolic.ConstraintSet, env *symbolic.Environment, side string) (symbolic.Assignment, error) {
	sols, err := checker.Selector().Select(ctx, set, env, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", side, err)
	}
	if len(sols) == 0 {
		return nil, fmt.Errorf("%s: %w", side, symbolic.ErrInfeasible)
	}
	return sols[0], nil
}

func typeMap(vars []oracle.Var) symbolic.TypeMap {
	out := make(symbolic.TypeMap, len(vars))
	for _, v := range vars {
		out[v.Name] = v.Type
	}
	return out
}

type inputs struct {
	fragment, program string
	pre, post         []symbolic.Line
}

func readInputs(files Files) (*inputs, error) {
	fragment, err := os.ReadFile(files.Fragment)
	if err != nil {
		return nil, fmt.Errorf("read fragment: %w", err)
	}
	program, err := os.ReadFile(files.Program)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	pre, err := symbolic.ReadConstraints(files.Pre)
	if err != nil {
		return nil, fmt.Errorf("precondition: %w", err)
	}
	post, err := symbolic.ReadConstraints(files.Post)
	if err != nil {
		return nil, fmt.Errorf("postcondition: %w", err)
	}
	return &inputs{fragment: string(fragment), program: string(program), pre: pre, post: post}, nil
}

// IsSearchFailure reports whether err means the search ran and found
// nothing, as opposed to a usage or environment error.
func IsSearchFailure(err error) bool {
	return errors.Is(err, bidir.ErrBudgetExhausted) || errors.Is(err, symbolic.ErrInfeasible)
}
