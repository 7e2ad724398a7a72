package solver

import "math"

// Propagation is HC4-style: each numeric comparison evaluates both sides
// forward over the current domains, then pushes the comparison's
// requirement back down the expression tree, narrowing the domains of the
// variables at the leaves. Disjunctions narrow by the hull of their
// surviving branches.

type truth int8

const (
	truthFalse truth = iota - 1
	truthUnknown
	truthTrue
)

// maxConstructiveBranches bounds the disjunctions that are propagated branch by branch.
const maxConstructiveBranches = 8

// forward returns an interval enclosing every value n can take.
func (s *Solver) forward(n *node, st *SolverState) Interval {
	switch n.op {
	case OpConst:
		return Point(n.val.Float())
	case OpVar:
		return s.GetDomain(st, n.idx).Bounds()
	case OpNeg:
		return s.forward(n.args[0], st).Neg()
	case OpAbs:
		return s.forward(n.args[0], st).Abs()
	}
	a := s.forward(n.args[0], st)
	b := s.forward(n.args[1], st)
	var r Interval
	switch n.op {
	case OpAdd:
		r = a.Add(b)
	case OpSub:
		r = a.Sub(b)
	case OpMul:
		r = a.Mul(b)
	case OpDiv:
		if n.kind == KindInt {
			r = a.floorDiv(b)
		} else {
			r = a.Div(b)
		}
	case OpMod:
		if n.kind == KindInt {
			r = a.euclidMod(b)
		} else {
			r = Whole()
		}
	case OpMin:
		r = a.Min(b)
	case OpMax:
		r = a.Max(b)
	default:
		r = Whole()
	}
	if n.kind == KindInt && !r.Empty() {
		r = r.Integral()
	}
	return r
}

// textSet returns the candidate strings of a text-valued node.
func (s *Solver) textSet(n *node, st *SolverState) *SetDomain {
	if n.op == OpConst {
		return NewSetDomain(n.val.s)
	}
	if d, ok := s.GetDomain(st, n.idx).(*SetDomain); ok {
		return d
	}
	return NewSetDomain()
}

// truthOf decides a predicate over the current domains when possible.
func (s *Solver) truthOf(n *node, st *SolverState) truth {
	switch n.op {
	case OpConst:
		if n.val.b {
			return truthTrue
		}
		return truthFalse
	case OpAnd:
		res := truthTrue
		for _, a := range n.args {
			switch s.truthOf(a, st) {
			case truthFalse:
				return truthFalse
			case truthUnknown:
				res = truthUnknown
			}
		}
		return res
	case OpOr:
		res := truthFalse
		for _, a := range n.args {
			switch s.truthOf(a, st) {
			case truthTrue:
				return truthTrue
			case truthUnknown:
				res = truthUnknown
			}
		}
		return res
	}
	if !n.op.isComparison() {
		return truthUnknown
	}
	if n.args[0].kind == KindString {
		l, r := s.textSet(n.args[0], st), s.textSet(n.args[1], st)
		eq := truthUnknown
		switch {
		case l.IsSingleton() && r.IsSingleton() && l.values[0] == r.values[0]:
			eq = truthTrue
		case l.Intersect(r).Empty():
			eq = truthFalse
		}
		if n.op == OpNe {
			return -eq
		}
		return eq
	}
	if n.args[0].kind == KindBool {
		return truthUnknown
	}
	l, r := s.forward(n.args[0], st), s.forward(n.args[1], st)
	if l.Empty() || r.Empty() {
		return truthFalse
	}
	switch n.op {
	case OpEq, OpNe:
		eq := truthUnknown
		switch {
		case l.Intersect(r).Empty() && !approxEqual(l.Lo, r.Hi) && !approxEqual(l.Hi, r.Lo):
			eq = truthFalse
		case l.IsPoint() && r.IsPoint() && approxEqual(l.Lo, r.Lo):
			eq = truthTrue
		}
		if n.op == OpNe {
			return -eq
		}
		return eq
	case OpLt:
		return order(l.Hi < r.Lo, l.Lo >= r.Hi)
	case OpLe:
		return order(l.Hi <= r.Lo, l.Lo > r.Hi && !approxEqual(l.Lo, r.Hi))
	case OpGt:
		return order(l.Lo > r.Hi, l.Hi <= r.Lo)
	case OpGe:
		return order(l.Lo >= r.Hi, l.Hi < r.Lo && !approxEqual(l.Hi, r.Lo))
	}
	return truthUnknown
}

func order(certainlyTrue, certainlyFalse bool) truth {
	switch {
	case certainlyTrue:
		return truthTrue
	case certainlyFalse:
		return truthFalse
	}
	return truthUnknown
}

// enforce narrows st so that n can still hold. ok is false when n cannot hold.
func (s *Solver) enforce(n *node, st *SolverState) (*SolverState, bool) {
	switch n.op {
	case OpConst:
		return st, n.val.b
	case OpAnd:
		var ok bool
		for _, a := range n.args {
			if st, ok = s.enforce(a, st); !ok {
				return st, false
			}
		}
		return st, true
	case OpOr:
		return s.enforceOr(n, st)
	}
	if !n.op.isComparison() {
		return st, true
	}
	switch n.args[0].kind {
	case KindString:
		return s.enforceText(n, st)
	case KindBool:
		return st, true
	}
	return s.enforceNumeric(n, st)
}

func (s *Solver) enforceOr(n *node, st *SolverState) (*SolverState, bool) {
	live := make([]*node, 0, len(n.args))
	for _, a := range n.args {
		switch s.truthOf(a, st) {
		case truthTrue:
			return st, true
		case truthUnknown:
			live = append(live, a)
		}
	}
	switch len(live) {
	case 0:
		return st, false
	case 1:
		return s.enforce(live[0], st)
	}
	if len(live) > maxConstructiveBranches {
		return st, true
	}

	// Constructive disjunction: every variable keeps the hull of the
	// domains it has in the branches that survive propagation.
	var survivors []*SolverState
	for _, a := range live {
		if bs, ok := s.enforce(a, st); ok {
			survivors = append(survivors, bs)
		}
	}
	if len(survivors) == 0 {
		return st, false
	}
	if len(survivors) == 1 {
		return survivors[0], true
	}
	out := st
	for id := range s.vars {
		orig := s.GetDomain(st, id)
		hull := s.GetDomain(survivors[0], id)
		if hull == orig {
			continue
		}
		for _, bs := range survivors[1:] {
			hull = hull.Hull(s.GetDomain(bs, id))
		}
		if !hull.Equal(orig) {
			out, _ = s.SetDomain(out, id, hull)
		}
	}
	return out, true
}

func (s *Solver) enforceText(n *node, st *SolverState) (*SolverState, bool) {
	l, r := n.args[0], n.args[1]
	ls, rs := s.textSet(l, st), s.textSet(r, st)
	var ok bool
	switch n.op {
	case OpEq:
		common := ls.Intersect(rs)
		if common.Empty() {
			return st, false
		}
		if st, ok = s.restrictText(l, common, st); !ok {
			return st, false
		}
		return s.restrictText(r, common, st)
	case OpNe:
		if ls.IsSingleton() && rs.IsSingleton() {
			return st, ls.values[0] != rs.values[0]
		}
		if rs.IsSingleton() {
			return s.restrictText(l, ls.Remove(rs.values[0]), st)
		}
		if ls.IsSingleton() {
			return s.restrictText(r, rs.Remove(ls.values[0]), st)
		}
	}
	return st, true
}

func (s *Solver) restrictText(n *node, d *SetDomain, st *SolverState) (*SolverState, bool) {
	if d.Empty() {
		return st, false
	}
	if n.op != OpVar {
		return st, true
	}
	cur := s.GetDomain(st, n.idx)
	if cur.Equal(d) {
		return st, true
	}
	return s.update(st, n.idx, d)
}

func bothInt(n *node) bool {
	return n.args[0].kind == KindInt && n.args[1].kind == KindInt
}

func (s *Solver) enforceNumeric(n *node, st *SolverState) (*SolverState, bool) {
	a, b := n.args[0], n.args[1]
	op := n.op
	if op == OpGt || op == OpGe {
		// Normalise a > b to b < a.
		a, b = b, a
		op = map[Op]Op{OpGt: OpLt, OpGe: OpLe}[op]
	}
	var ok bool
	inf := math.Inf(1)
	switch op {
	case OpEq:
		if st, ok = s.narrow(a, s.forward(b, st), st); !ok {
			return st, false
		}
		return s.narrow(b, s.forward(a, st), st)
	case OpLe, OpLt:
		gap := 0.0
		if op == OpLt && bothInt(n) {
			gap = 1
		}
		r := s.forward(b, st)
		if st, ok = s.narrow(a, Interval{-inf, r.Hi - gap}, st); !ok {
			return st, false
		}
		l := s.forward(a, st)
		if st, ok = s.narrow(b, Interval{l.Lo + gap, inf}, st); !ok {
			return st, false
		}
		if op == OpLt && !bothInt(n) {
			l, r = s.forward(a, st), s.forward(b, st)
			if l.IsPoint() && r.IsPoint() && l.Lo >= r.Lo {
				return st, false
			}
		}
		return st, true
	case OpNe:
		l, r := s.forward(a, st), s.forward(b, st)
		if l.IsPoint() && r.IsPoint() {
			return st, !approxEqual(l.Lo, r.Lo)
		}
		if !bothInt(n) {
			return st, true
		}
		if r.IsPoint() {
			return s.shave(a, l, r.Lo, st)
		}
		if l.IsPoint() {
			return s.shave(b, r, l.Lo, st)
		}
	}
	return st, true
}

// shave removes the integer c from the domain of n when c is one of its bounds.
func (s *Solver) shave(n *node, cur Interval, c float64, st *SolverState) (*SolverState, bool) {
	inf := math.Inf(1)
	switch {
	case cur.Lo == c:
		return s.narrow(n, Interval{c + 1, inf}, st)
	case cur.Hi == c:
		return s.narrow(n, Interval{-inf, c - 1}, st)
	}
	return st, true
}

// narrow restricts n to target, propagating the restriction to its operands.
func (s *Solver) narrow(n *node, target Interval, st *SolverState) (*SolverState, bool) {
	cur := s.forward(n, st)
	t := cur.Intersect(target)
	if n.kind == KindInt {
		t = t.Integral()
	}
	if t.Empty() {
		// Reals may miss by rounding noise only.
		if n.kind == KindReal && !cur.Empty() && !target.Empty() &&
			(approxEqual(cur.Lo, target.Hi) || approxEqual(cur.Hi, target.Lo)) {
			return st, true
		}
		return st, false
	}
	inf := math.Inf(1)
	var ok bool
	switch n.op {
	case OpConst:
		return st, true
	case OpVar:
		d, isInterval := s.GetDomain(st, n.idx).(*IntervalDomain)
		if !isInterval {
			return st, true
		}
		nd := d.Narrow(t)
		if nd.Empty() {
			return st, false
		}
		if nd == d {
			return st, true
		}
		return s.update(st, n.idx, nd)
	case OpNeg:
		return s.narrow(n.args[0], t.Neg(), st)
	case OpAdd:
		x, y := n.args[0], n.args[1]
		if st, ok = s.narrow(x, t.Sub(s.forward(y, st)), st); !ok {
			return st, false
		}
		return s.narrow(y, t.Sub(s.forward(x, st)), st)
	case OpSub:
		x, y := n.args[0], n.args[1]
		if st, ok = s.narrow(x, t.Add(s.forward(y, st)), st); !ok {
			return st, false
		}
		return s.narrow(y, s.forward(x, st).Sub(t), st)
	case OpMul:
		x, y := n.args[0], n.args[1]
		if yb := s.forward(y, st); !yb.Contains(0) {
			if st, ok = s.narrow(x, t.Div(yb), st); !ok {
				return st, false
			}
		}
		if xb := s.forward(x, st); !xb.Contains(0) {
			return s.narrow(y, t.Div(xb), st)
		}
		return st, true
	case OpDiv:
		if n.kind == KindInt {
			return st, true
		}
		x, y := n.args[0], n.args[1]
		if yb := s.forward(y, st); !yb.Contains(0) {
			if st, ok = s.narrow(x, t.Mul(yb), st); !ok {
				return st, false
			}
		}
		if !t.Contains(0) {
			return s.narrow(y, s.forward(x, st).Div(t), st)
		}
		return st, true
	case OpAbs:
		x := n.args[0]
		xb := s.forward(x, st)
		switch {
		case xb.Lo >= 0:
			return s.narrow(x, t, st)
		case xb.Hi <= 0:
			return s.narrow(x, t.Neg(), st)
		}
		return s.narrow(x, Interval{-t.Hi, t.Hi}, st)
	case OpMin:
		for _, x := range n.args {
			if st, ok = s.narrow(x, Interval{t.Lo, inf}, st); !ok {
				return st, false
			}
		}
		return st, true
	case OpMax:
		for _, x := range n.args {
			if st, ok = s.narrow(x, Interval{-inf, t.Hi}, st); !ok {
				return st, false
			}
		}
		return st, true
	}
	return st, true
}
