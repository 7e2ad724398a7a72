package solver

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Grammar (lowest to highest precedence):
//
//	or      := and { ("or" | "||") and }
//	and     := not { ("and" | "&&") not }
//	not     := ("not" | "!") not | cmp
//	cmp     := sum { ("==" | "!=" | "<" | "<=" | ">" | ">=") sum }
//	sum     := term { ("+" | "-") term }
//	term    := unary { ("*" | "/" | "%") unary }
//	unary   := ("-" | "+") unary | primary
//	primary := number | string | "true" | "false" | ident
//	         | func "(" or { "," or } ")" | "(" or ")"
//
// A chain a < b < c means a < b and b < c.

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokReal
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

var punctuation = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "+", "-", "*", "/", "%", "!", "(", ")", ","}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '_' || unicode.IsLetter(c):
			j := i + 1
			for j < len(src) && (src[j] == '_' || src[j] == '.' || unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i
			isReal := false
			for j < len(src) && unicode.IsDigit(rune(src[j])) {
				j++
			}
			if j < len(src) && src[j] == '.' {
				isReal = true
				j++
				for j < len(src) && unicode.IsDigit(rune(src[j])) {
					j++
				}
			}
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && unicode.IsDigit(rune(src[k])) {
					isReal = true
					j = k
					for j < len(src) && unicode.IsDigit(rune(src[j])) {
						j++
					}
				}
			}
			kind := tokInt
			if isReal {
				kind = tokReal
			}
			toks = append(toks, token{kind: kind, text: src[i:j], pos: i})
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < len(src) {
				if src[j] == '\\' && j+1 < len(src) {
					switch src[j+1] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					default:
						sb.WriteByte(src[j+1])
					}
					j += 2
					continue
				}
				if src[j] == src[i] {
					closed = true
					j++
					break
				}
				sb.WriteByte(src[j])
				j++
			}
			if !closed {
				return toks, &SyntaxError{Pos: i, Msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: i})
			i = j
		default:
			matched := false
			for _, p := range punctuation {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return toks, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

// keywords never name variables.
var keywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "True": true, "False": true,
	"And": true, "Or": true, "Not": true, "Implies": true,
}

var functions = map[string]Op{
	"And": OpAnd, "Or": OpOr, "Not": OpNot, "Implies": OpImplies,
	"Abs": OpAbs, "abs": OpAbs, "Min": OpMin, "min": OpMin, "Max": OpMax, "max": OpMax,
}

// ScanIdentifiers returns the variable-like identifiers of src in order of
// first appearance, skipping keywords and function names used as calls.
// Lexing stops silently at the first malformed character, so it can be used
// on lines Parse rejects.
func ScanIdentifiers(src string) []string {
	toks, _ := lex(src)
	var out []string
	seen := map[string]bool{}
	for i, t := range toks {
		if t.kind != tokIdent || keywords[t.text] || seen[t.text] {
			continue
		}
		if _, fn := functions[t.text]; fn && i+1 < len(toks) && toks[i+1].text == "(" {
			continue
		}
		seen[t.text] = true
		out = append(out, t.text)
	}
	return out
}

type parser struct {
	toks []token
	pos  int
}

// Parse reads one constraint. The result is unbound: identifiers must be
// resolved with Expr.Bind before the expression can be solved.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty constraint"}
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and literals.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(texts ...string) (token, bool) {
	t := p.peek()
	if t.kind != tokPunct && t.kind != tokIdent {
		return t, false
	}
	for _, s := range texts {
		if t.text == s {
			p.pos++
			return t, true
		}
	}
	return t, false
}

func (p *parser) expect(text string) error {
	if _, ok := p.accept(text); !ok {
		t := p.peek()
		return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, found %q", text, t.text)}
	}
	return nil
}

func (p *parser) parseOr() (*Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []*Expr{first}
	for {
		if _, ok := p.accept("or", "||"); !ok {
			break
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	if len(args) == 1 {
		return first, nil
	}
	return mk(OpOr, KindBool, args...), nil
}

func (p *parser) parseAnd() (*Expr, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	args := []*Expr{first}
	for {
		if _, ok := p.accept("and", "&&"); !ok {
			break
		}
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	if len(args) == 1 {
		return first, nil
	}
	return mk(OpAnd, KindBool, args...), nil
}

func (p *parser) parseNot() (*Expr, error) {
	if _, ok := p.accept("not", "!"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return mk(OpNot, KindBool, x), nil
	}
	return p.parseCmp()
}

var comparisonOps = map[string]Op{"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe}

func (p *parser) parseCmp() (*Expr, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	var links []*Expr
	for {
		t := p.peek()
		op, ok := comparisonOps[t.text]
		if t.kind != tokPunct || !ok {
			break
		}
		p.next()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		links = append(links, mk(op, KindBool, left, right))
		left = right
	}
	switch len(links) {
	case 0:
		return left, nil
	case 1:
		return links[0], nil
	}
	return mk(OpAnd, KindBool, links...), nil
}

func (p *parser) parseSum() (*Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.accept("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if t.text == "-" {
			op = OpSub
		}
		left = mk(op, KindInt, left, right)
	}
}

func (p *parser) parseTerm() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.accept("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := map[string]Op{"*": OpMul, "/": OpDiv, "%": OpMod}[t.text]
		left = mk(op, KindInt, left, right)
	}
}

func (p *parser) parseUnary() (*Expr, error) {
	if t, ok := p.accept("-", "+"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.text == "+" {
			return x, nil
		}
		if x.op == OpConst && x.kind.Numeric() {
			if x.kind == KindInt {
				return Const(IntValue(-x.val.i)), nil
			}
			return Const(RealValue(-x.val.f)), nil
		}
		return mk(OpNeg, KindInt, x), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("integer %s out of range", t.text)}
		}
		return Const(IntValue(i)), nil
	case tokReal:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("bad number %s", t.text)}
		}
		return Const(RealValue(f)), nil
	case tokString:
		return Const(StringValue(t.text)), nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			return Bool(true), nil
		case "false", "False":
			return Bool(false), nil
		}
		if op, ok := functions[t.text]; ok && p.peek().text == "(" {
			return p.parseCall(t, op)
		}
		if keywords[t.text] {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected keyword %q", t.text)}
		}
		return &Expr{op: OpIdent, name: t.text}, nil
	case tokPunct:
		if t.text == "(" {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of constraint"}
	}
	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}

func (p *parser) parseCall(name token, op Op) (*Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []*Expr
	if _, ok := p.accept(")"); !ok {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if _, ok := p.accept(","); ok {
				continue
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	switch op {
	case OpAnd:
		return And(args...), nil
	case OpOr:
		return Or(args...), nil
	case OpNot, OpAbs:
		if len(args) != 1 {
			return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("%s takes 1 argument, got %d", name.text, len(args))}
		}
		return mk(op, KindBool, args[0]), nil
	case OpImplies:
		if len(args) != 2 {
			return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("%s takes 2 arguments, got %d", name.text, len(args))}
		}
		return mk(op, KindBool, args...), nil
	case OpMin, OpMax:
		if len(args) < 2 {
			return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("%s takes at least 2 arguments, got %d", name.text, len(args))}
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = mk(op, KindInt, acc, a)
		}
		return acc, nil
	}
	return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("unknown function %q", name.text)}
}
