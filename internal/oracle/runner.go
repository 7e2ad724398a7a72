package oracle

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/bidir"
)

// RunnerConfig configures compilation and execution of generated programs.
type RunnerConfig struct {
	Compiler       string        `yaml:"compiler" validate:"required"`
	Flags          []string      `yaml:"flags"`
	CompileTimeout time.Duration `yaml:"compile_timeout" validate:"gte=0"`
	RunTimeout     time.Duration `yaml:"run_timeout" validate:"gte=0"`
	// MaxOutput caps the captured bytes of each stream.
	MaxOutput int `yaml:"max_output" validate:"gte=0"`
}

// DefaultRunnerConfig compiles with gcc and links libm.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Compiler:       "gcc",
		Flags:          []string{"-lm"},
		CompileTimeout: 60 * time.Second,
		RunTimeout:     10 * time.Second,
		MaxOutput:      1 << 20,
	}
}

// Runner compiles a C file and runs the binary.
type Runner struct {
	cfg    RunnerConfig
	logger *zap.Logger
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(cfg RunnerConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Compiler == "" {
		cfg.Compiler = "gcc"
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = 1 << 20
	}
	return &Runner{cfg: cfg, logger: logger}
}

// CompileAndRun compiles source next to itself and runs it, returning
// stdout. Failures are *bidir.OracleFailure with stage "compile" or "run".
// program labels metrics.
func (r *Runner) CompileAndRun(ctx context.Context, program, source string) (string, error) {
	bin := strings.TrimSuffix(source, ".c") + ".out"
	args := append([]string{source, "-o", bin}, r.cfg.Flags...)
	if _, stderr, err := r.execute(ctx, r.cfg.CompileTimeout, r.cfg.Compiler, args...); err != nil {
		programRuns.WithLabelValues(program, "compile_error").Inc()
		return "", &bidir.OracleFailure{Stage: "compile", Detail: firstLines(stderr, 5), Err: err}
	}
	stdout, stderr, err := r.execute(ctx, r.cfg.RunTimeout, bin)
	if err != nil {
		programRuns.WithLabelValues(program, "run_error").Inc()
		return "", &bidir.OracleFailure{Stage: "run", Detail: firstLines(stderr, 5), Err: err}
	}
	programRuns.WithLabelValues(program, "ok").Inc()
	return stdout, nil
}

func (r *Runner) execute(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: r.cfg.MaxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: r.cfg.MaxOutput}

	r.logger.Debug("executing", zap.String("command", name), zap.Strings("args", args), zap.Duration("timeout", timeout))
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.String(), stderr.String(), errors.New("timed out after " + timeout.String())
	}
	return stdout.String(), stderr.String(), err
}

// limitedWriter discards bytes beyond limit.
type limitedWriter struct {
	w       *bytes.Buffer
	limit   int
	written int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if room := l.limit - l.written; room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		l.w.Write(p)
		l.written += len(p)
	}
	return n, nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}
