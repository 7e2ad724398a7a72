package solver

import "fmt"

// node is the solver's compiled form of an expression: variables are
// resolved to model positions and negations are pushed down to the
// comparisons (negation normal form), so propagation never sees OpNot.
type node struct {
	op   Op
	kind Kind
	val  Value
	idx  int
	args []*node
}

var negatedComparison = map[Op]Op{
	OpEq: OpNe, OpNe: OpEq,
	OpLt: OpGe, OpGe: OpLt,
	OpLe: OpGt, OpGt: OpLe,
}

func compile(e *Expr, index map[string]int, negate bool) (*node, error) {
	switch e.op {
	case OpConst:
		if negate {
			if e.kind != KindBool {
				return nil, fmt.Errorf("%w: negated %v literal", ErrNotPredicate, e.kind)
			}
			return &node{op: OpConst, kind: KindBool, val: BoolValue(!e.val.b)}, nil
		}
		return &node{op: OpConst, kind: e.kind, val: e.val}, nil
	case OpIdent:
		return nil, &TypeError{Msg: fmt.Sprintf("unbound identifier %q", e.name)}
	case OpVar:
		id, ok := index[e.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, e.name)
		}
		return &node{op: OpVar, kind: e.kind, idx: id}, nil
	case OpNot:
		return compile(e.args[0], index, !negate)
	case OpImplies:
		// a => b  is  not a or b;  not (a => b)  is  a and not b.
		if negate {
			return compileAll(OpAnd, index, []*Expr{e.args[0], e.args[1]}, []bool{false, true})
		}
		return compileAll(OpOr, index, []*Expr{e.args[0], e.args[1]}, []bool{true, false})
	case OpAnd, OpOr:
		op := e.op
		if negate {
			if op == OpAnd {
				op = OpOr
			} else {
				op = OpAnd
			}
		}
		flags := make([]bool, len(e.args))
		for i := range flags {
			flags[i] = negate
		}
		return compileAll(op, index, e.args, flags)
	}

	op := e.op
	if negate {
		neg, ok := negatedComparison[op]
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %s", ErrNotPredicate, e)
		}
		op = neg
	}
	args := make([]*node, len(e.args))
	for i, a := range e.args {
		n, err := compile(a, index, false)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return &node{op: op, kind: e.kind, args: args}, nil
}

func compileAll(op Op, index map[string]int, exprs []*Expr, negate []bool) (*node, error) {
	args := make([]*node, 0, len(exprs))
	for i, e := range exprs {
		n, err := compile(e, index, negate[i])
		if err != nil {
			return nil, err
		}
		// Flatten nested conjunctions and disjunctions.
		if n.op == op {
			args = append(args, n.args...)
		} else {
			args = append(args, n)
		}
	}
	return &node{op: op, kind: KindBool, args: args}, nil
}
