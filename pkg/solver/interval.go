package solver

import (
	"fmt"
	"math"
)

// Interval is a closed range [Lo, Hi] over the extended reals.
// An interval with Lo > Hi is empty.
//
// Mathematical Properties:
//   - Sum: [a,b] + [c,d] = [a+c, b+d]
//   - Difference: [a,b] - [c,d] = [a-d, b-c]
//   - Product: hull of the four endpoint products
//   - Quotient: [a,b] * [1/d, 1/c] when 0 ∉ [c,d]
type Interval struct {
	Lo, Hi float64
}

// Point returns the degenerate interval [v, v].
func Point(v float64) Interval { return Interval{v, v} }

// Whole returns (-inf, +inf).
func Whole() Interval { return Interval{math.Inf(-1), math.Inf(1)} }

func emptyInterval() Interval { return Interval{math.Inf(1), math.Inf(-1)} }

// Empty reports whether the interval contains no value.
func (a Interval) Empty() bool { return !(a.Lo <= a.Hi) }

// Contains reports whether v lies in the interval.
func (a Interval) Contains(v float64) bool { return a.Lo <= v && v <= a.Hi }

// IsPoint reports whether the interval holds exactly one value.
func (a Interval) IsPoint() bool { return a.Lo == a.Hi }

// Width returns Hi - Lo.
func (a Interval) Width() float64 { return a.Hi - a.Lo }

// Mid returns the midpoint, clamped to finite values for half-open intervals.
func (a Interval) Mid() float64 {
	switch {
	case math.IsInf(a.Lo, -1) && math.IsInf(a.Hi, 1):
		return 0
	case math.IsInf(a.Lo, -1):
		return math.Min(0, a.Hi)
	case math.IsInf(a.Hi, 1):
		return math.Max(0, a.Lo)
	}
	return a.Lo + (a.Hi-a.Lo)/2
}

// Intersect returns a ∩ b.
func (a Interval) Intersect(b Interval) Interval {
	return Interval{math.Max(a.Lo, b.Lo), math.Min(a.Hi, b.Hi)}
}

// Hull returns the smallest interval containing both a and b.
func (a Interval) Hull(b Interval) Interval {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	return Interval{math.Min(a.Lo, b.Lo), math.Max(a.Hi, b.Hi)}
}

// Clamp returns the value of the interval nearest to v.
func (a Interval) Clamp(v float64) float64 {
	return math.Max(a.Lo, math.Min(a.Hi, v))
}

// Integral rounds the bounds inward to integers.
func (a Interval) Integral() Interval {
	return Interval{math.Ceil(a.Lo), math.Floor(a.Hi)}
}

func (a Interval) Add(b Interval) Interval { return Interval{a.Lo + b.Lo, a.Hi + b.Hi} }

func (a Interval) Sub(b Interval) Interval { return Interval{a.Lo - b.Hi, a.Hi - b.Lo} }

func (a Interval) Neg() Interval { return Interval{-a.Hi, -a.Lo} }

// mulBound multiplies endpoints treating 0 * inf as 0.
func mulBound(x, y float64) float64 {
	if x == 0 || y == 0 {
		return 0
	}
	return x * y
}

func (a Interval) Mul(b Interval) Interval {
	if a.Empty() || b.Empty() {
		return emptyInterval()
	}
	p := [4]float64{mulBound(a.Lo, b.Lo), mulBound(a.Lo, b.Hi), mulBound(a.Hi, b.Lo), mulBound(a.Hi, b.Hi)}
	lo, hi := p[0], p[0]
	for _, v := range p[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return Interval{lo, hi}
}

// Div returns a / b. Division by the point 0 is empty; division by an
// interval straddling 0 is unbounded.
func (a Interval) Div(b Interval) Interval {
	if a.Empty() || b.Empty() {
		return emptyInterval()
	}
	if b.Lo == 0 && b.Hi == 0 {
		return emptyInterval()
	}
	if b.Contains(0) {
		return Whole()
	}
	return a.Mul(Interval{1 / b.Hi, 1 / b.Lo})
}

func (a Interval) Abs() Interval {
	switch {
	case a.Lo >= 0:
		return a
	case a.Hi <= 0:
		return a.Neg()
	}
	return Interval{0, math.Max(-a.Lo, a.Hi)}
}

func (a Interval) Min(b Interval) Interval {
	return Interval{math.Min(a.Lo, b.Lo), math.Min(a.Hi, b.Hi)}
}

func (a Interval) Max(b Interval) Interval {
	return Interval{math.Max(a.Lo, b.Lo), math.Max(a.Hi, b.Hi)}
}

// floorDiv computes the hull of Euclidean integer quotients.
func (a Interval) floorDiv(b Interval) Interval {
	q := a.Div(b)
	if q.Empty() {
		return q
	}
	// Euclidean quotients differ from floor division by at most one.
	return Interval{math.Floor(q.Lo) - 1, math.Ceil(q.Hi) + 1}
}

// euclidMod bounds x mod b for integers: the result is always in [0, |b|-1].
func (a Interval) euclidMod(b Interval) Interval {
	m := math.Max(math.Abs(b.Lo), math.Abs(b.Hi))
	if m == 0 {
		return emptyInterval()
	}
	if math.IsInf(m, 0) {
		return Interval{0, math.Inf(1)}
	}
	return Interval{0, m - 1}
}

func (a Interval) String() string {
	if a.Empty() {
		return "[]"
	}
	return fmt.Sprintf("[%g, %g]", a.Lo, a.Hi)
}
