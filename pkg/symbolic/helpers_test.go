package symbolic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func build(t *testing.T, types TypeMap, lines ...string) (*Environment, ConstraintSet) {
	t.Helper()
	env, set, errs, err := Build(Lines(lines...), types, BuildOptions{RequireConstraints: true})
	require.NoError(t, err)
	require.Empty(t, errs)
	return env, set
}

func newTestSampler(start float64) *Sampler {
	cfg := DefaultSamplerConfig()
	cfg.InitialDistance = start
	return NewSampler(cfg, DefaultSolverOptions(), nil)
}

func newTestChecker() *Checker {
	sampler := newTestSampler(100)
	return NewChecker(NewMedianSelector(sampler, nil), NewRefiner(DefaultRefinerConfig(), DefaultSolverOptions(), nil), nil)
}

func ints(sols []Assignment, name string) []int64 {
	out := make([]int64, len(sols))
	for i, s := range sols {
		out[i] = s[name].Int()
	}
	return out
}

func deviation(a, b Assignment) float64 {
	d := 0.0
	for k, v := range a {
		if w, ok := b[k]; ok && v.Kind().Numeric() {
			d = math.Max(d, math.Abs(v.Float()-w.Float()))
		}
	}
	return d
}

var ctx = context.Background()

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
