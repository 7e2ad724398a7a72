package oracle

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Placeholder returns the token standing for the value of name in a harness.
func Placeholder(name string) string { return name + "_placeholder" }

// Harness is C source with a placeholder for each variable in Vars.
type Harness struct {
	Source string
	Vars   []string
}

// Missing returns the variables whose placeholder does not occur in the source.
func (h *Harness) Missing() []string {
	var out []string
	for _, v := range h.Vars {
		if !placeholderRE(v).MatchString(h.Source) {
			out = append(out, v)
		}
	}
	return out
}

// Instantiate replaces every placeholder with the value bound in values.
// Each harness variable must be bound.
func (h *Harness) Instantiate(values symbolic.RawAssignment) (string, error) {
	code := h.Source
	for _, v := range h.Vars {
		text, ok := values.Get(v)
		if !ok {
			return "", fmt.Errorf("no value for %s", v)
		}
		code = placeholderRE(v).ReplaceAllLiteralString(code, text)
	}
	return code, nil
}

func placeholderRE(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(Placeholder(name)) + `\b`)
}

// InsertPlaceholders rewrites initialised declarations of vars, such as
// "int x = 5;", into "int x = x_placeholder;".
func InsertPlaceholders(code string, vars []string) string {
	if len(vars) == 0 {
		return code
	}
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = regexp.QuoteMeta(v)
	}
	re := regexp.MustCompile(`^(\s*[A-Za-z_][A-Za-z0-9_\s*]*?)\s+(` + strings.Join(names, "|") + `)\s*=\s*[^;]+;(.*)$`)
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if m := re.FindStringSubmatch(l); m != nil {
			lines[i] = fmt.Sprintf("%s %s = %s;%s", m[1], m[2], Placeholder(m[2]), m[3])
		}
	}
	return strings.Join(lines, "\n")
}

// ScriptDir writes numbered copies of instantiated programs.
type ScriptDir struct {
	dir    string
	prefix string

	mu   sync.Mutex
	next int
}

// NewScriptDir creates dir if needed. Copies are named <prefix>_<n>.c.
func NewScriptDir(dir, prefix string) (*ScriptDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	return &ScriptDir{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory copies are written to.
func (s *ScriptDir) Dir() string { return s.dir }

// Write stores code as the next numbered copy and returns its path.
func (s *ScriptDir) Write(code string) (string, error) {
	s.mu.Lock()
	n := s.next
	s.next++
	s.mu.Unlock()
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d.c", s.prefix, n))
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}

// Save writes code under a fixed name in the directory.
func (s *ScriptDir) Save(name, code string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
