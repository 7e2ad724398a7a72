package symbolic

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

func TestCoerce(t *testing.T) {
	env, _ := EmptyEnvironment().Declare("r", Real)
	raw := RawAssignment{{"x", "10.000000"}, {"d", "2.5"}, {"r", "3"}, {"n", "-4"}}
	got, err := Coerce(raw, TypeMap{"x": "int", "d": "double", "n": "long"}, env)
	require.NoError(t, err)

	want := Assignment{
		"x": solver.IntValue(10),
		"d": solver.RealValue(2.5),
		"r": solver.RealValue(3),
		"n": solver.IntValue(-4),
	}
	if diff := cmp.Diff(want.String(), got.String()); diff != "" {
		t.Errorf("Coerce() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Real, got["r"].Kind())
}

func TestCoerce_Errors(t *testing.T) {
	_, err := Coerce(RawAssignment{{"s", "abc"}}, TypeMap{"s": "char*"}, EmptyEnvironment())
	var ute *UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "s", ute.Name)
	assert.Equal(t, "char*", ute.Type)

	_, err = Coerce(RawAssignment{{"x", "ten"}}, nil, EmptyEnvironment())
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))

	// A program printing a huge value for an int output is not truncated.
	_, err = Coerce(RawAssignment{{"x", "1e30"}}, TypeMap{"x": "int"}, EmptyEnvironment())
	assert.True(t, errors.As(err, &pe))
}

func TestAugment_PinsValues(t *testing.T) {
	env, set := build(t, TypeMap{"x": "int"}, "x > 0", "x < 10")
	aug, augEnv, err := Augment(set, env, RawAssignment{{"x", "5"}}, TypeMap{"x": "int"})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len(), "original set untouched")
	assert.Equal(t, 3, aug.Len())
	assert.Same(t, env, augEnv)

	sols, err := newTestSampler(100).Sample(aug, augEnv, 3).Collect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sols)
	for _, s := range sols {
		assert.Equal(t, int64(5), s["x"].Int())
	}
}

func TestAugment_DeclaresMissing(t *testing.T) {
	env, set := build(t, nil, "x > 0")
	aug, augEnv, err := Augment(set, env, RawAssignment{{"z", "2.5"}}, TypeMap{"z": "float"})
	require.NoError(t, err)
	z, ok := augEnv.Lookup("z")
	require.True(t, ok)
	assert.Equal(t, Real, z.Kind())
	_, ok = env.Lookup("z")
	assert.False(t, ok)

	sols, err := newTestSampler(100).Sample(aug, augEnv, 1).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.InDelta(t, 2.5, sols[0]["z"].Float(), 1e-9)
}

func TestAugment_Unsupported(t *testing.T) {
	env, set := build(t, nil, "x > 0")
	got, gotEnv, err := Augment(set, env, RawAssignment{{"name", "bob"}}, TypeMap{"name": "string"})
	var ute *UnsupportedTypeError
	assert.True(t, errors.As(err, &ute))
	assert.Equal(t, set.Len(), got.Len())
	assert.Same(t, env, gotEnv)
}

func TestExclude_NeverRepeats(t *testing.T) {
	env, set := build(t, nil, "x >= 1", "x <= 2")
	first, err := newTestSampler(100).Sample(set, env, 1).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	ex, exEnv := Exclude(set, env, first[0])
	assert.Equal(t, set.Len()+1, ex.Len())
	sols, err := newTestSampler(100).Sample(ex, exEnv, 5).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.NotEqual(t, first[0]["x"].Int(), sols[0]["x"].Int())

	ex, exEnv = Exclude(ex, exEnv, sols[0])
	sols, err = newTestSampler(100).Sample(ex, exEnv, 5).Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestExclude_PartialSolution(t *testing.T) {
	env, set := build(t, nil, "x > 0", "x < 10", "y == x + 1")
	ex, exEnv := Exclude(set, env, Assignment{"x": solver.IntValue(1)})
	sols, err := newTestSampler(2).Sample(ex, exEnv, 5).Collect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sols)
	for _, s := range sols {
		assert.NotEqual(t, int64(1), s["x"].Int())
		assert.True(t, set.Satisfied(s))
	}
}

func TestExclude_Empty(t *testing.T) {
	env, set := build(t, nil, "x > 0")
	ex, exEnv := Exclude(set, env, nil)
	assert.Equal(t, set.Len(), ex.Len())
	assert.Same(t, env, exEnv)
}
