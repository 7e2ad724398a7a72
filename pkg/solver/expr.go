package solver

import (
	"fmt"
	"strings"
)

// Op identifies the operation performed by an expression node.
type Op int

const (
	OpConst Op = iota
	OpIdent    // unresolved identifier produced by Parse
	OpVar      // resolved variable reference
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAbs
	OpMin
	OpMax
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
	OpImplies
)

var opSymbols = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or", OpImplies: "=>",
}

func (o Op) isComparison() bool { return o >= OpEq && o <= OpGe }

// Var names a typed variable. Two Vars are the same variable when their names match.
type Var struct {
	name string
	kind Kind
}

// NewVar creates a variable handle.
func NewVar(name string, kind Kind) Var { return Var{name: name, kind: kind} }

// Name returns the variable name.
func (v Var) Name() string { return v.name }

// Kind returns the variable's kind.
func (v Var) Kind() Kind { return v.kind }

func (v Var) String() string { return v.name + ":" + v.kind.String() }

// Expr is an immutable expression tree. Trees produced by Parse contain
// OpIdent leaves and must be resolved with Bind before use. Trees produced
// by the constructors below (Ref, Add, Eq, ...) are already bound.
type Expr struct {
	op   Op
	kind Kind
	val  Value
	name string
	args []*Expr
}

// Op returns the node's operation.
func (e *Expr) Op() Op { return e.op }

// Kind returns the result kind of a bound expression.
func (e *Expr) Kind() Kind { return e.kind }

// Args returns the operands. The slice must not be modified.
func (e *Expr) Args() []*Expr { return e.args }

// Name returns the identifier of an OpVar or OpIdent node.
func (e *Expr) Name() string { return e.name }

// Value returns the literal of an OpConst node.
func (e *Expr) Value() Value { return e.val }

// Const wraps a literal.
func Const(v Value) *Expr { return &Expr{op: OpConst, kind: v.Kind(), val: v} }

// Bool returns the literal true or false.
func Bool(b bool) *Expr { return Const(BoolValue(b)) }

// Ref references a variable.
func Ref(v Var) *Expr { return &Expr{op: OpVar, kind: v.kind, name: v.name} }

func arithKind(op Op, args ...*Expr) Kind {
	for _, a := range args {
		if a.kind == KindReal {
			return KindReal
		}
	}
	return KindInt
}

func mk(op Op, kind Kind, args ...*Expr) *Expr {
	return &Expr{op: op, kind: kind, args: args}
}

// Neg returns -x.
func Neg(x *Expr) *Expr { return mk(OpNeg, arithKind(OpNeg, x), x) }

// Add returns x + y.
func Add(x, y *Expr) *Expr { return mk(OpAdd, arithKind(OpAdd, x, y), x, y) }

// Sum folds terms with Add. An empty sum is the integer 0.
func Sum(terms ...*Expr) *Expr {
	if len(terms) == 0 {
		return Const(IntValue(0))
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = Add(acc, t)
	}
	return acc
}

// Sub returns x - y.
func Sub(x, y *Expr) *Expr { return mk(OpSub, arithKind(OpSub, x, y), x, y) }

// Mul returns x * y.
func Mul(x, y *Expr) *Expr { return mk(OpMul, arithKind(OpMul, x, y), x, y) }

// Div returns x / y. Division of two integers is Euclidean.
func Div(x, y *Expr) *Expr { return mk(OpDiv, arithKind(OpDiv, x, y), x, y) }

// Mod returns x % y. Modulo of two integers is Euclidean (never negative).
func Mod(x, y *Expr) *Expr { return mk(OpMod, arithKind(OpMod, x, y), x, y) }

// Abs returns |x|.
func Abs(x *Expr) *Expr { return mk(OpAbs, arithKind(OpAbs, x), x) }

// Min returns the smaller of x and y.
func Min(x, y *Expr) *Expr { return mk(OpMin, arithKind(OpMin, x, y), x, y) }

// Max returns the larger of x and y.
func Max(x, y *Expr) *Expr { return mk(OpMax, arithKind(OpMax, x, y), x, y) }

func Eq(x, y *Expr) *Expr { return mk(OpEq, KindBool, x, y) }
func Ne(x, y *Expr) *Expr { return mk(OpNe, KindBool, x, y) }
func Lt(x, y *Expr) *Expr { return mk(OpLt, KindBool, x, y) }
func Le(x, y *Expr) *Expr { return mk(OpLe, KindBool, x, y) }
func Gt(x, y *Expr) *Expr { return mk(OpGt, KindBool, x, y) }
func Ge(x, y *Expr) *Expr { return mk(OpGe, KindBool, x, y) }

// And returns the conjunction of xs. And() is true.
func And(xs ...*Expr) *Expr {
	switch len(xs) {
	case 0:
		return Bool(true)
	case 1:
		return xs[0]
	}
	return mk(OpAnd, KindBool, xs...)
}

// Or returns the disjunction of xs. Or() is false.
func Or(xs ...*Expr) *Expr {
	switch len(xs) {
	case 0:
		return Bool(false)
	case 1:
		return xs[0]
	}
	return mk(OpOr, KindBool, xs...)
}

// Not negates x.
func Not(x *Expr) *Expr { return mk(OpNot, KindBool, x) }

// Implies returns x => y.
func Implies(x, y *Expr) *Expr { return mk(OpImplies, KindBool, x, y) }

// Vars returns the distinct variable (or identifier) names in order of first appearance.
func (e *Expr) Vars() []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*Expr)
	walk = func(n *Expr) {
		if (n.op == OpVar || n.op == OpIdent) && !seen[n.name] {
			seen[n.name] = true
			out = append(out, n.name)
		}
		for _, a := range n.args {
			walk(a)
		}
	}
	walk(e)
	return out
}

// Literals returns the distinct string literals in the tree.
func (e *Expr) Literals() []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*Expr)
	walk = func(n *Expr) {
		if n.op == OpConst && n.val.kind == KindString && !seen[n.val.s] {
			seen[n.val.s] = true
			out = append(out, n.val.s)
		}
		for _, a := range n.args {
			walk(a)
		}
	}
	walk(e)
	return out
}

// Bind resolves identifiers through lookup and type-checks the tree,
// returning a new bound tree. The receiver is left untouched.
func (e *Expr) Bind(lookup func(name string) (Var, bool)) (*Expr, error) {
	switch e.op {
	case OpConst:
		return e, nil
	case OpVar:
		return e, nil
	case OpIdent:
		v, ok := lookup(e.name)
		if !ok {
			return nil, &TypeError{Msg: fmt.Sprintf("undeclared identifier %q", e.name)}
		}
		return Ref(v), nil
	}

	args := make([]*Expr, len(e.args))
	for i, a := range e.args {
		b, err := a.Bind(lookup)
		if err != nil {
			return nil, err
		}
		args[i] = b
	}

	switch e.op {
	case OpNeg, OpAbs, OpAdd, OpSub, OpMul, OpDiv, OpMod, OpMin, OpMax:
		for _, a := range args {
			if !a.kind.Numeric() {
				return nil, &TypeError{Msg: fmt.Sprintf("operand %s of %s is %v, want a number", a, opName(e.op), a.kind)}
			}
		}
		return mk(e.op, arithKind(e.op, args...), args...), nil
	case OpEq, OpNe:
		l, r := args[0].kind, args[1].kind
		if !(l.Numeric() && r.Numeric()) && l != r {
			return nil, &TypeError{Msg: fmt.Sprintf("cannot compare %v with %v in %s", l, r, e)}
		}
		return mk(e.op, KindBool, args...), nil
	case OpLt, OpLe, OpGt, OpGe:
		for _, a := range args {
			if !a.kind.Numeric() {
				return nil, &TypeError{Msg: fmt.Sprintf("ordering comparison on %v operand %s", a.kind, a)}
			}
		}
		return mk(e.op, KindBool, args...), nil
	case OpAnd, OpOr, OpNot, OpImplies:
		for _, a := range args {
			if a.kind != KindBool {
				return nil, &TypeError{Msg: fmt.Sprintf("operand %s of %s is %v, want Bool", a, opName(e.op), a.kind)}
			}
		}
		return mk(e.op, KindBool, args...), nil
	}
	return nil, &TypeError{Msg: fmt.Sprintf("unknown operation %d", e.op)}
}

func opName(op Op) string {
	switch op {
	case OpNeg:
		return "negation"
	case OpAbs:
		return "Abs"
	case OpMin:
		return "Min"
	case OpMax:
		return "Max"
	case OpNot:
		return "not"
	}
	if s, ok := opSymbols[op]; ok {
		return "'" + s + "'"
	}
	return fmt.Sprintf("op(%d)", op)
}

// String renders the expression in the constraint grammar accepted by Parse.
func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.op {
	case OpConst:
		sb.WriteString(e.val.String())
	case OpVar, OpIdent:
		sb.WriteString(e.name)
	case OpNeg:
		sb.WriteString("-(")
		e.args[0].write(sb)
		sb.WriteByte(')')
	case OpNot:
		sb.WriteString("not (")
		e.args[0].write(sb)
		sb.WriteByte(')')
	case OpAbs, OpMin, OpMax:
		sb.WriteString(opName(e.op))
		sb.WriteByte('(')
		for i, a := range e.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteByte(')')
	case OpImplies:
		sb.WriteString("Implies(")
		e.args[0].write(sb)
		sb.WriteString(", ")
		e.args[1].write(sb)
		sb.WriteByte(')')
	default:
		sym := opSymbols[e.op]
		paren := !e.op.isComparison()
		if paren {
			sb.WriteByte('(')
		}
		for i, a := range e.args {
			if i > 0 {
				sb.WriteString(" " + sym + " ")
			}
			a.write(sb)
		}
		if paren {
			sb.WriteByte(')')
		}
	}
}
