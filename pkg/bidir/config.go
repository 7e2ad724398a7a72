package bidir

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Budgets bounds the controller's loops.
type Budgets struct {
	// MaxRetries is the number of outer forward/backward rounds per seed.
	MaxRetries int `yaml:"max_retries" validate:"gte=1"`
	// InnerRetries is the number of inversions tried per outer round.
	InnerRetries int `yaml:"inner_retries" validate:"gte=1"`
	// PotentialRetries is the number of postcondition seeds explored.
	PotentialRetries int `yaml:"potential_retries" validate:"gte=1"`
	// PostPool is the number of diverse postcondition solutions seeds are drawn from.
	PostPool int `yaml:"post_pool" validate:"gte=1"`
}

// DefaultBudgets returns 5 outer rounds, 3 inversions per round, 3 seeds
// from a pool of 5.
func DefaultBudgets() Budgets {
	return Budgets{MaxRetries: 5, InnerRetries: 3, PotentialRetries: 3, PostPool: 5}
}

func (b Budgets) normalize() Budgets {
	d := DefaultBudgets()
	if b.MaxRetries <= 0 {
		b.MaxRetries = d.MaxRetries
	}
	if b.InnerRetries <= 0 {
		b.InnerRetries = d.InnerRetries
	}
	if b.PotentialRetries <= 0 {
		b.PotentialRetries = d.PotentialRetries
	}
	if b.PostPool <= 0 {
		b.PostPool = d.PostPool
	}
	return b
}

// Config configures a Controller. The zero value uses default budgets,
// seed 0, no logging and the global tracer provider.
type Config struct {
	Budgets Budgets

	// Seed drives the shuffle of the postcondition pool.
	Seed int64

	// RunID labels logs, spans and the result. Empty means a fresh UUID.
	RunID string

	Logger *zap.Logger
	Tracer trace.Tracer
}
