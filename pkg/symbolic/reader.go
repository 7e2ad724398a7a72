package symbolic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Line is one line of constraint text with its 1-based position.
type Line struct {
	Number int
	Text   string
}

// Lines wraps plain strings as numbered lines.
func Lines(texts ...string) []Line {
	out := make([]Line, len(texts))
	for i, t := range texts {
		out[i] = Line{Number: i + 1, Text: t}
	}
	return out
}

// ParseConstraintLines reads one constraint per line. Surrounding
// whitespace is trimmed; blank lines and lines starting with '#' are skipped.
func ParseConstraintLines(r io.Reader) ([]Line, error) {
	var out []Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, Line{Number: n, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read constraints: %w", err)
	}
	return out, nil
}

// ReadConstraints reads a constraint file.
func ReadConstraints(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open constraints: %w", err)
	}
	defer f.Close()
	return ParseConstraintLines(f)
}

// BuildOptions controls Build.
type BuildOptions struct {
	// RequireConstraints makes Build fail when no line yields a constraint.
	RequireConstraints bool

	// Logger receives a warning per rejected line. Nil disables logging.
	Logger *zap.Logger
}

// Build declares a variable for every identifier in lines, typed through
// types, and parses each line into a constraint. Lines that fail to parse
// or type-check are reported and dropped; the rest are kept in order.
func Build(lines []Line, types TypeMap, opts BuildOptions) (*Environment, ConstraintSet, []*ParseError, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var names []string
	seen := map[string]bool{}
	for _, l := range lines {
		for _, id := range solver.ScanIdentifiers(l.Text) {
			if !seen[id] {
				seen[id] = true
				names = append(names, id)
			}
		}
	}
	env := EmptyEnvironment().DeclareAll(names, types)

	var (
		set  ConstraintSet
		errs []*ParseError
	)
	for _, l := range lines {
		c, err := ParseConstraint(l.Text, env)
		if err != nil {
			pe := &ParseError{Line: l.Number, Source: l.Text, Err: err}
			logger.Warn("dropping constraint", zap.Int("line", l.Number), zap.String("source", l.Text), zap.Error(err))
			errs = append(errs, pe)
			continue
		}
		set = set.With(c)
	}
	if opts.RequireConstraints && set.Len() == 0 {
		return env, set, errs, fmt.Errorf("%w: %d line(s) rejected", ErrNoConstraints, len(errs))
	}
	return env, set, errs, nil
}

// ParseConstraint parses and binds one constraint against env.
func ParseConstraint(text string, env *Environment) (Constraint, error) {
	e, err := solver.Parse(text)
	if err != nil {
		return Constraint{}, err
	}
	b, err := e.Bind(env.Lookup)
	if err != nil {
		return Constraint{}, err
	}
	if b.Kind() != solver.KindBool {
		return Constraint{}, fmt.Errorf("%w: %s is %v", solver.ErrNotPredicate, text, b.Kind())
	}
	return Constraint{source: text, expr: b}, nil
}
