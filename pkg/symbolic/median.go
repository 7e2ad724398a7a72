package symbolic

import (
	"context"

	"go.uber.org/zap"
)

// medianDraws is how many diverse solutions a single median pick looks at.
const medianDraws = 3

// MedianSelector picks representative solutions. Asking for one solution
// draws three diverse samples and returns the second in discovery order:
// the first is biased towards the solver's preferred region and the third
// towards the edge of what is feasible.
type MedianSelector struct {
	sampler *Sampler
	logger  *zap.Logger
}

// NewMedianSelector wraps a sampler.
func NewMedianSelector(sampler *Sampler, logger *zap.Logger) *MedianSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedianSelector{sampler: sampler, logger: logger}
}

// Sampler returns the underlying sampler.
func (m *MedianSelector) Sampler() *Sampler { return m.sampler }

// Select returns up to n solutions of set. For n == 1 the result is the
// median pick described above (the only solution when just one exists);
// for larger n it is the first n diverse samples. An infeasible set yields
// no solutions and no error.
func (m *MedianSelector) Select(ctx context.Context, set ConstraintSet, env *Environment, n int) ([]Assignment, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > 1 {
		return m.sampler.Sample(set, env, n).Collect(ctx)
	}
	sols, err := m.sampler.Sample(set, env, medianDraws).Collect(ctx)
	if err != nil {
		return nil, err
	}
	switch len(sols) {
	case 0:
		return nil, nil
	case 1:
		return sols[:1], nil
	}
	m.logger.Debug("median pick", zap.Int("drawn", len(sols)), zap.Stringer("chosen", sols[1]))
	return sols[1:2], nil
}
