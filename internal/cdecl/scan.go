// Package cdecl scans C source for variable declarations and reports the
// type token of each declared name.
package cdecl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"go.uber.org/zap"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Type tokens reported by Scan.
const (
	Int    = "int"
	Long   = "long"
	Float  = "float"
	Double = "double"
	Char   = "char"
	Bool   = "bool"
	String = "string"
	Array  = "array"
)

// MaxSourceSize bounds the input accepted by Scan.
const MaxSourceSize = 4 << 20

var (
	// ErrSourceTooLarge is returned for input above MaxSourceSize.
	ErrSourceTooLarge = errors.New("source exceeds maximum size")
	// ErrInvalidSource is returned for input that is not UTF-8.
	ErrInvalidSource = errors.New("source is not valid UTF-8")
)

// Declaration is one declared variable.
type Declaration struct {
	Name string
	// Token is the normalised type token, one of the constants above.
	Token string
	// Raw is the declared type as written, without qualifiers.
	Raw  string
	Line int
}

// Result holds the declarations found in a source file.
type Result struct {
	Declarations []Declaration
	// Conflicts lists names declared again with a different token. The
	// first declaration is the one reported by Types.
	Conflicts []string
	// HasErrors is set when the parser recovered from syntax errors.
	HasErrors bool
}

// Types returns the name to token map, first declaration first.
func (r *Result) Types() symbolic.TypeMap {
	out := make(symbolic.TypeMap, len(r.Declarations))
	for _, d := range r.Declarations {
		if _, ok := out[d.Name]; !ok {
			out[d.Name] = d.Token
		}
	}
	return out
}

// Scanner parses C source with tree-sitter.
type Scanner struct {
	logger *zap.Logger
}

// NewScanner creates a scanner. A nil logger disables logging.
func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// ScanFile reads and scans path.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.Scan(ctx, src)
}

// Scan collects every variable declaration and function parameter of src.
// Struct fields are not variables and are ignored.
// Declarations whose type cannot be mapped to a token are skipped.
func (s *Scanner) Scan(ctx context.Context, src []byte) (*Result, error) {
	if len(src) > MaxSourceSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrSourceTooLarge, len(src))
	}
	if !utf8.Valid(src) {
		return nil, ErrInvalidSource
	}

	// A parser is not safe for concurrent use, so one is created per call.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{HasErrors: root.HasError()}
	w := walker{src: src, res: res, seen: map[string]string{}}
	w.walk(root)

	if res.HasErrors {
		s.logger.Warn("source contains syntax errors; declarations may be incomplete")
	}
	for _, name := range res.Conflicts {
		s.logger.Debug("conflicting declarations", zap.String("name", name))
	}
	s.logger.Debug("scanned declarations", zap.Int("count", len(res.Declarations)))
	return res, nil
}

type walker struct {
	src  []byte
	res  *Result
	seen map[string]string
}

func (w *walker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "declaration", "parameter_declaration":
		w.declaration(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

func (w *walker) declaration(n *sitter.Node) {
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return
	}
	raw := strings.Join(strings.Fields(typ.Content(w.src)), " ")
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		name, shape := w.declarator(n.Child(i))
		if name == "" || shape == shapeFunction {
			continue
		}
		token := Token(raw, shape)
		if token == "" {
			continue
		}
		if prev, ok := w.seen[name]; ok {
			if prev != token {
				w.res.Conflicts = append(w.res.Conflicts, name)
			}
			continue
		}
		w.seen[name] = token
		w.res.Declarations = append(w.res.Declarations, Declaration{
			Name:  name,
			Token: token,
			Raw:   raw,
			Line:  int(n.StartPoint().Row) + 1,
		})
	}
}

// Shape is the form of a declarator around its identifier.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapePointer
	ShapeArray
	shapeFunction
)

// declarator unwraps init, pointer, array and parenthesised declarators
// down to the identifier.
func (w *walker) declarator(n *sitter.Node) (string, Shape) {
	s := ShapeScalar
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n.Content(w.src), s
		case "init_declarator", "parenthesized_declarator":
		case "pointer_declarator":
			if s == ShapeScalar {
				s = ShapePointer
			}
		case "array_declarator":
			s = ShapeArray
		case "function_declarator":
			return "", shapeFunction
		default:
			return "", s
		}
		if next := n.ChildByFieldName("declarator"); next != nil {
			n = next
		} else {
			n = n.NamedChild(0)
		}
	}
	return "", s
}

// Token maps a declared type and declarator shape to a type token.
// Pointers to char are strings; other pointers and unknown types map to
// "" and are skipped.
func Token(raw string, s Shape) string {
	t := raw
	for _, q := range []string{"const", "volatile", "static", "extern", "register", "restrict", "signed", "unsigned"} {
		t = strings.Join(removeWord(strings.Fields(t), q), " ")
	}
	var base string
	switch {
	case t == "":
		base = Int // bare "unsigned" or "signed"
	case strings.Contains(t, "double"):
		base = Double
	case strings.Contains(t, "float"):
		base = Float
	case t == "char":
		base = Char
	case strings.Contains(t, "long"):
		base = Long
	case t == "bool" || t == "_Bool":
		base = Bool
	case t == "int" || t == "short" || t == "short int" || t == "size_t" || t == "ssize_t" || isFixedWidth(t):
		base = Int
	default:
		return ""
	}
	switch s {
	case ShapeArray:
		if base == Char {
			return String
		}
		return Array
	case ShapePointer:
		if base == Char {
			return String
		}
		return ""
	}
	return base
}

func removeWord(words []string, w string) []string {
	out := words[:0]
	for _, x := range words {
		if x != w {
			out = append(out, x)
		}
	}
	return out
}

func isFixedWidth(t string) bool {
	t = strings.TrimPrefix(t, "u")
	if !strings.HasPrefix(t, "int") || !strings.HasSuffix(t, "_t") {
		return false
	}
	switch strings.TrimSuffix(strings.TrimPrefix(t, "int"), "_t") {
	case "8", "16", "32", "64":
		return true
	}
	return false
}
