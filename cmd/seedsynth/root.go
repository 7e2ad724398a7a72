package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/internal/config"
	"github.com/gitrdm/seedsynth/internal/logging"
	"github.com/gitrdm/seedsynth/internal/telemetry"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// app holds what the persistent flags configure.
type app struct {
	configPath    string
	verbose       bool
	seed          int64
	metricsAddr   string
	traceExporter string

	cfg    config.Config
	logger *zap.Logger
	tel    *telemetry.Telemetry
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "seedsynth",
		Short: "Find inputs that carry a code fragment from a precondition to a postcondition",
		Long: `seedsynth combines a constraint solver with a language model.

The solver samples, checks and refines assignments of symbolic constraints;
the model writes a runnable harness and an approximate inverse of the
fragment. A bidirectional search alternates between running the fragment
forward and inverting it until an input satisfying the precondition
produces outputs satisfying the postcondition.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	pf.Int64Var(&a.seed, "seed", 0, "random seed (overrides the configuration)")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&a.traceExporter, "trace", "", "trace exporter: none or stdout")

	root.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newSampleCmd(a),
		newCheckCmd(a),
		newRefineCmd(a),
		newTypesCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = a.seed
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = a.metricsAddr
	}
	if a.traceExporter != "" {
		cfg.Telemetry.TraceExporter = a.traceExporter
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = logging.New(cfg.Log); err != nil {
		return err
	}
	a.tel, err = telemetry.Init(cmd.Context(), cfg.Telemetry, symbolic.GetVersion(), a.logger)
	return err
}

func (a *app) close() {
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tel.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) solverParts() (*symbolic.Sampler, *symbolic.Refiner, error) {
	sc, err := a.cfg.SamplerConfig()
	if err != nil {
		return nil, nil, err
	}
	rc, err := a.cfg.RefinerConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := a.cfg.SolverOptions()
	return symbolic.NewSampler(sc, opts, a.logger.Named("sampler")),
		symbolic.NewRefiner(rc, opts, a.logger.Named("refiner")), nil
}

// loadConstraints reads a constraint file and reports rejected lines on w.
func (a *app) loadConstraints(cmd *cobra.Command, path string, types symbolic.TypeMap) (*symbolic.Environment, symbolic.ConstraintSet, error) {
	lines, err := symbolic.ReadConstraints(path)
	if err != nil {
		return nil, symbolic.ConstraintSet{}, err
	}
	env, set, errs, err := symbolic.Build(lines, types, symbolic.BuildOptions{RequireConstraints: true, Logger: a.logger})
	for _, pe := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %v\n", pe)
	}
	return env, set, err
}

// parseAssignment reads name=value pairs.
func parseAssignment(pairs []string) (symbolic.RawAssignment, error) {
	var out symbolic.RawAssignment
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		out = append(out, symbolic.RawValue{Name: name, Text: value})
	}
	return out, nil
}
