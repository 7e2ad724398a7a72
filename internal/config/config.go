// Package config loads the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/seedsynth/internal/logging"
	"github.com/gitrdm/seedsynth/internal/oracle"
	"github.com/gitrdm/seedsynth/internal/telemetry"
	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Config is the complete run configuration.
type Config struct {
	Log       logging.Config      `yaml:"log"`
	LLM       oracle.ClientConfig `yaml:"llm"`
	Runner    oracle.RunnerConfig `yaml:"runner"`
	Budgets   bidir.Budgets       `yaml:"budgets"`
	Solver    Solver              `yaml:"solver"`
	Sampler   Sampler             `yaml:"sampler"`
	Refiner   Refiner             `yaml:"refiner"`
	Telemetry telemetry.Config    `yaml:"telemetry"`

	// Seed drives every random choice of a run.
	Seed int64 `yaml:"seed"`
	// LogFolder receives one subdirectory per run.
	LogFolder string `yaml:"log_folder" validate:"required"`
	// FallbackType is the type given to fragment variables the program
	// does not declare.
	FallbackType string `yaml:"fallback_type" validate:"required"`
	// Workers bounds the runs of a batch executed at once.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// Solver bounds each solver call.
type Solver struct {
	IntBound  int64         `yaml:"int_bound" validate:"gte=0"`
	RealBound float64       `yaml:"real_bound" validate:"gte=0"`
	NodeLimit int           `yaml:"node_limit" validate:"gte=0"`
	TimeLimit time.Duration `yaml:"time_limit" validate:"gte=0"`
	Random    bool          `yaml:"random"`
}

// Sampler configures the diversity schedule.
type Sampler struct {
	InitialDistance float64 `yaml:"initial_distance" validate:"gt=0"`
	MinDistance     float64 `yaml:"min_distance" validate:"gt=0,ltefield=InitialDistance"`
	Decay           float64 `yaml:"decay" validate:"gt=0,lt=1"`
	Metric          string  `yaml:"metric" validate:"oneof=absolute relative"`
}

// Refiner configures nearest-feasible refinement.
type Refiner struct {
	Mode         string  `yaml:"mode" validate:"oneof=l1 banded"`
	MaxRounds    int     `yaml:"max_rounds" validate:"gte=1"`
	Band         float64 `yaml:"band" validate:"gt=0"`
	BandAttempts int     `yaml:"band_attempts" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := symbolic.DefaultSolverOptions()
	sc := symbolic.DefaultSamplerConfig()
	rc := symbolic.DefaultRefinerConfig()
	return Config{
		Log:     logging.DefaultConfig(),
		LLM:     oracle.DefaultClientConfig(),
		Runner:  oracle.DefaultRunnerConfig(),
		Budgets: bidir.DefaultBudgets(),
		Solver: Solver{
			IntBound:  opts.IntBound,
			RealBound: opts.RealBound,
			NodeLimit: opts.NodeLimit,
		},
		Sampler: Sampler{
			InitialDistance: sc.InitialDistance,
			MinDistance:     sc.MinDistance,
			Decay:           sc.Decay,
			Metric:          sc.Metric.String(),
		},
		Refiner: Refiner{
			Mode:         rc.Mode.String(),
			MaxRounds:    rc.MaxRounds,
			Band:         rc.Band,
			BandAttempts: rc.BandAttempts,
		},
		Telemetry:    telemetry.DefaultConfig(),
		Seed:         1,
		LogFolder:    "log_temp",
		FallbackType: "int",
		Workers:      2,
	}
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document omits, and
// validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode the config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SolverOptions converts the solver and seed settings.
func (c Config) SolverOptions() symbolic.SolverOptions {
	return symbolic.SolverOptions{
		IntBound:  c.Solver.IntBound,
		RealBound: c.Solver.RealBound,
		NodeLimit: c.Solver.NodeLimit,
		TimeLimit: c.Solver.TimeLimit,
		Random:    c.Solver.Random,
		Seed:      c.Seed,
	}
}

// SamplerConfig converts the sampler settings.
func (c Config) SamplerConfig() (symbolic.SamplerConfig, error) {
	m, err := symbolic.ParseMetric(c.Sampler.Metric)
	if err != nil {
		return symbolic.SamplerConfig{}, err
	}
	return symbolic.SamplerConfig{
		InitialDistance: c.Sampler.InitialDistance,
		MinDistance:     c.Sampler.MinDistance,
		Decay:           c.Sampler.Decay,
		Metric:          m,
	}, nil
}

// RefinerConfig converts the refiner settings.
func (c Config) RefinerConfig() (symbolic.RefinerConfig, error) {
	mode, err := symbolic.ParseRefineMode(c.Refiner.Mode)
	if err != nil {
		return symbolic.RefinerConfig{}, err
	}
	return symbolic.RefinerConfig{
		Mode:         mode,
		MaxRounds:    c.Refiner.MaxRounds,
		Band:         c.Refiner.Band,
		BandAttempts: c.Refiner.BandAttempts,
		Seed:         c.Seed,
	}, nil
}
