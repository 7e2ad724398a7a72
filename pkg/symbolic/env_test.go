package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
	}{
		{"int", Integer},
		{"long", Integer},
		{"", Integer},
		{"char", Integer},
		{"bool", Integer},
		{"float", Real},
		{"double", Real},
		{"unsigned DOUBLE", Real},
		{"string", Text},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.token), "token %q", tt.token)
	}
}

func TestEnvironment_Immutable(t *testing.T) {
	base := EmptyEnvironment()
	withX, x := base.Declare("x", Real)

	assert.Equal(t, 0, base.Len())
	assert.Equal(t, 1, withX.Len())
	_, ok := base.Lookup("x")
	assert.False(t, ok)

	same, again := withX.Declare("x", Integer)
	assert.Same(t, withX, same)
	assert.Equal(t, x, again)
	assert.Equal(t, Real, again.Kind(), "kind is fixed at first declaration")

	withY, _ := withX.Declare("y", Integer)
	assert.Equal(t, []string{"x", "y"}, withY.Names())
	assert.Equal(t, []string{"x"}, withX.Names())
	assert.Equal(t, "{x:Real, y:Int}", withY.String())
}

func TestEnvironment_DeclareAll(t *testing.T) {
	env := EmptyEnvironment().DeclareAll([]string{"b", "a"}, TypeMap{"a": "double"})
	require.Equal(t, 2, env.Len())
	a, _ := env.Lookup("a")
	b, _ := env.Lookup("b")
	assert.Equal(t, Real, a.Kind())
	assert.Equal(t, Integer, b.Kind())
	assert.Equal(t, []string{"a", "b"}, env.Names())
}
