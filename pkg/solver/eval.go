package solver

import (
	"fmt"
	"math"
)

// eval computes the exact value of n. ok is false when the value is
// undefined, as with division by zero; a predicate with an undefined
// operand is false.
func (n *node) eval(vals []Value) (Value, bool) {
	switch n.op {
	case OpConst:
		return n.val, true
	case OpVar:
		return vals[n.idx], true
	case OpAnd:
		for _, a := range n.args {
			v, ok := a.eval(vals)
			if !ok || !v.b {
				return BoolValue(false), true
			}
		}
		return BoolValue(true), true
	case OpOr:
		for _, a := range n.args {
			if v, ok := a.eval(vals); ok && v.b {
				return BoolValue(true), true
			}
		}
		return BoolValue(false), true
	case OpNot:
		v, ok := n.args[0].eval(vals)
		return BoolValue(ok && !v.b), true
	}

	if n.op.isComparison() {
		l, lok := n.args[0].eval(vals)
		r, rok := n.args[1].eval(vals)
		if !lok || !rok {
			return BoolValue(false), true
		}
		return BoolValue(compareValues(n.op, l, r)), true
	}

	x, ok := n.args[0].eval(vals)
	if !ok {
		return Value{}, false
	}
	switch n.op {
	case OpNeg:
		if x.kind == KindInt {
			return IntValue(-x.i), true
		}
		return RealValue(-x.Float()), true
	case OpAbs:
		if x.kind == KindInt {
			if x.i < 0 {
				return IntValue(-x.i), true
			}
			return x, true
		}
		return RealValue(math.Abs(x.Float())), true
	}

	y, ok := n.args[1].eval(vals)
	if !ok {
		return Value{}, false
	}
	return arith(n.op, x, y)
}

func arith(op Op, x, y Value) (Value, bool) {
	if x.kind == KindInt && y.kind == KindInt {
		a, b := x.i, y.i
		switch op {
		case OpAdd:
			return IntValue(a + b), true
		case OpSub:
			return IntValue(a - b), true
		case OpMul:
			return IntValue(a * b), true
		case OpDiv:
			if b == 0 {
				return Value{}, false
			}
			return IntValue(euclidDiv(a, b)), true
		case OpMod:
			if b == 0 {
				return Value{}, false
			}
			return IntValue(a - b*euclidDiv(a, b)), true
		case OpMin:
			return IntValue(min(a, b)), true
		case OpMax:
			return IntValue(max(a, b)), true
		}
		return Value{}, false
	}
	a, b := x.Float(), y.Float()
	switch op {
	case OpAdd:
		return RealValue(a + b), true
	case OpSub:
		return RealValue(a - b), true
	case OpMul:
		return RealValue(a * b), true
	case OpDiv:
		if b == 0 {
			return Value{}, false
		}
		return RealValue(a / b), true
	case OpMod:
		if b == 0 {
			return Value{}, false
		}
		return RealValue(math.Mod(a, b)), true
	case OpMin:
		return RealValue(math.Min(a, b)), true
	case OpMax:
		return RealValue(math.Max(a, b)), true
	}
	return Value{}, false
}

// euclidDiv returns q such that a = b*q + r with 0 <= r < |b|.
func euclidDiv(a, b int64) int64 {
	q, r := a/b, a%b
	if r < 0 {
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

func compareValues(op Op, l, r Value) bool {
	switch {
	case l.kind == KindString || r.kind == KindString:
		if l.kind != r.kind {
			return op == OpNe
		}
		switch op {
		case OpEq:
			return l.s == r.s
		case OpNe:
			return l.s != r.s
		}
		return false
	case l.kind == KindBool || r.kind == KindBool:
		eq := l.kind == r.kind && l.b == r.b
		return (op == OpEq && eq) || (op == OpNe && !eq)
	case l.kind == KindInt && r.kind == KindInt:
		a, b := l.i, r.i
		switch op {
		case OpEq:
			return a == b
		case OpNe:
			return a != b
		case OpLt:
			return a < b
		case OpLe:
			return a <= b
		case OpGt:
			return a > b
		case OpGe:
			return a >= b
		}
		return false
	}
	a, b := l.Float(), r.Float()
	switch op {
	case OpEq:
		return approxEqual(a, b)
	case OpNe:
		return !approxEqual(a, b)
	case OpLt:
		return a < b
	case OpLe:
		return a <= b || approxEqual(a, b)
	case OpGt:
		return a > b
	case OpGe:
		return a >= b || approxEqual(a, b)
	}
	return false
}

// Evaluate computes e under the assignment a. Every variable in e must be bound in a.
func Evaluate(e *Expr, a Assignment) (Value, error) {
	index := make(map[string]int, len(a))
	vals := make([]Value, 0, len(a))
	for _, name := range e.Vars() {
		v, ok := a[name]
		if !ok {
			return Value{}, fmt.Errorf("%w: %s is not assigned", ErrUnknownVariable, name)
		}
		index[name] = len(vals)
		vals = append(vals, v)
	}
	n, err := compile(e, index, false)
	if err != nil {
		return Value{}, err
	}
	v, ok := n.eval(vals)
	if !ok {
		return Value{}, fmt.Errorf("evaluate %s: undefined (division by zero)", e)
	}
	return v, nil
}

// Holds reports whether predicate e is true under a. Missing variables or
// undefined arithmetic make it false.
func Holds(e *Expr, a Assignment) bool {
	v, err := Evaluate(e, a)
	return err == nil && v.kind == KindBool && v.b
}
