package cdecl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

const program = `#include <stdio.h>
#include <stdbool.h>
#include <stdint.h>

struct point { int px; int py; };

static double scale(double factor, int n) {
    return factor * n;
}

int main(void) {
    int in = 4, out;
    unsigned long count = 0;
    const char *label = "x";
    char buf[16];
    int values[3] = {1, 2, 3};
    float ratio = 0.5f;
    bool done = false;
    uint32_t mask = 0xff;
    struct point origin;
    int *ptr = &in;
    for (int i = 0; i < 3; i++) {
        out = in + 1;
    }
    long double precise = 1.0L;
    return 0;
}
`

func TestScan(t *testing.T) {
	res, err := NewScanner(nil).Scan(context.Background(), []byte(program))
	require.NoError(t, err)
	assert.False(t, res.HasErrors)

	want := symbolic.TypeMap{
		"factor":  Double,
		"n":       Int,
		"in":      Int,
		"out":     Int,
		"count":   Long,
		"label":   String,
		"buf":     String,
		"values":  Array,
		"ratio":   Float,
		"done":    Bool,
		"mask":    Int,
		"i":       Int,
		"precise": Double,
	}
	assert.Equal(t, want, res.Types())

	for _, d := range res.Declarations {
		if d.Name == "in" {
			assert.Equal(t, 12, d.Line)
			assert.Equal(t, "int", d.Raw)
		}
	}
}

func TestScan_Conflicts(t *testing.T) {
	src := "void f(void) { int x = 1; }\nvoid g(void) { double x = 2.0; int y; }\n"
	res, err := NewScanner(nil).Scan(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, res.Conflicts)
	assert.Equal(t, Int, res.Types()["x"])
	assert.Equal(t, Int, res.Types()["y"])
}

func TestScan_Recovers(t *testing.T) {
	res, err := NewScanner(nil).Scan(context.Background(), []byte("int a = 1;\nint b = ;\n double c = 2.0;\n"))
	require.NoError(t, err)
	assert.True(t, res.HasErrors)
	assert.Equal(t, Int, res.Types()["a"])
}

func TestScan_Rejects(t *testing.T) {
	s := NewScanner(nil)
	_, err := s.Scan(context.Background(), []byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = s.Scan(context.Background(), []byte(strings.Repeat(" ", MaxSourceSize+1)))
	assert.ErrorIs(t, err, ErrSourceTooLarge)
}

func TestScanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.c")
	require.NoError(t, os.WriteFile(path, []byte("int n = 3;"), 0o644))
	res, err := NewScanner(nil).ScanFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, symbolic.TypeMap{"n": Int}, res.Types())

	_, err = NewScanner(nil).ScanFile(context.Background(), filepath.Join(t.TempDir(), "missing.c"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	tests := []struct {
		raw   string
		shape Shape
		want  string
	}{
		{"int", ShapeScalar, Int},
		{"unsigned", ShapeScalar, Int},
		{"short", ShapeScalar, Int},
		{"long long", ShapeScalar, Long},
		{"unsigned char", ShapeScalar, Char},
		{"char", ShapePointer, String},
		{"char", ShapeArray, String},
		{"double", ShapeArray, Array},
		{"int", ShapePointer, ""},
		{"int64_t", ShapeScalar, Int},
		{"int128_t", ShapeScalar, ""},
		{"_Bool", ShapeScalar, Bool},
		{"struct point", ShapeScalar, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Token(tt.raw, tt.shape), "%s/%d", tt.raw, tt.shape)
	}
}
