package symbolic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

func TestParseConstraintLines(t *testing.T) {
	src := "# precondition\n\n  x > 0  \nx < 10\n"
	lines, err := ParseConstraintLines(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []Line{{Number: 3, Text: "x > 0"}, {Number: 4, Text: "x < 10"}}, lines)
}

func TestReadConstraints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pre.txt")
	require.NoError(t, os.WriteFile(path, []byte("in > 0\n"), 0o644))

	lines, err := ReadConstraints(path)
	require.NoError(t, err)
	assert.Equal(t, Lines("in > 0"), lines)

	_, err = ReadConstraints(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestBuild_DropsBadLines(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	env, set, errs, err := Build(Lines("x > 0", "x >", "y == 2*x", `x + "a" > 1`), nil,
		BuildOptions{RequireConstraints: true, Logger: zap.New(core)})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, "x > 0", set.At(0).String())
	assert.Equal(t, "y == 2*x", set.At(1).String())
	require.Len(t, errs, 2)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, 4, errs[1].Line)
	assert.Equal(t, 2, logs.Len())

	_, ok := env.Lookup("y")
	assert.True(t, ok)
}

func TestBuild_TypedVariables(t *testing.T) {
	env, set := build(t, TypeMap{"r": "double", "s": "string"}, "r > 1.5", `s == "ok"`)
	r, _ := env.Lookup("r")
	s, _ := env.Lookup("s")
	assert.Equal(t, Real, r.Kind())
	assert.Equal(t, Text, s.Kind())
	assert.Equal(t, []string{"r", "s"}, set.Vars())
}

func TestBuild_RequireConstraints(t *testing.T) {
	_, _, errs, err := Build(Lines("x >"), nil, BuildOptions{RequireConstraints: true})
	assert.True(t, errors.Is(err, ErrNoConstraints))
	assert.Len(t, errs, 1)

	_, set, _, err := Build(nil, nil, BuildOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestConstraintSet_WithLeavesReceiver(t *testing.T) {
	env, set := build(t, nil, "x > 0")
	c, err := ParseConstraint("x < 5", env)
	require.NoError(t, err)

	more := set.With(c)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 2, more.Len())
	assert.Equal(t, "x > 0\nx < 5", more.String())

	_, err = ParseConstraint("x + 1", env)
	assert.True(t, errors.Is(err, solver.ErrNotPredicate))
}
