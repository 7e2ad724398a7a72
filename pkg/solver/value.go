package solver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies variables, values and expressions.
// A variable's kind is fixed when it is declared and never changes.
type Kind int

const (
	// KindInt is an unbounded-in-principle integer (bounded by SolverConfig.IntBound during search).
	KindInt Kind = iota
	// KindReal is a real number approximated with float64.
	KindReal
	// KindString is a text value. Strings only take part in equality tests.
	KindString
	// KindBool is the kind of predicates; variables are never boolean.
	KindBool
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindReal:
		return "Real"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of this kind take part in arithmetic.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindReal
}

// realTolerance bounds the relative error tolerated when comparing reals for equality.
const realTolerance = 1e-9

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= realTolerance*scale
}

// Value is an immutable scalar of one Kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

// IntValue returns an integer value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v, f: float64(v)} }

// RealValue returns a real value.
func RealValue(v float64) Value { return Value{kind: KindReal, f: v} }

// StringValue returns a text value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// BoolValue returns a truth value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Int returns the value as an integer, truncating reals.
func (v Value) Int() int64 {
	if v.kind == KindReal {
		return int64(v.f)
	}
	return v.i
}

// Float returns the value as a float64. Non-numeric values return 0.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Text returns the string payload of a KindString value.
func (v Value) Text() string { return v.s }

// Bool returns the payload of a KindBool value.
func (v Value) Bool() bool { return v.b }

// Equal compares two values. Numeric values compare across kinds, reals with
// a small relative tolerance.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == KindInt && o.kind == KindInt:
		return v.i == o.i
	case v.kind.Numeric() && o.kind.Numeric():
		return approxEqual(v.Float(), o.Float())
	case v.kind == KindString && o.kind == KindString:
		return v.s == o.s
	case v.kind == KindBool && o.kind == KindBool:
		return v.b == o.b
	}
	return false
}

// String formats the value the way it is written in constraint text and
// in harness placeholders.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		if math.Abs(v.f) < 1e15 {
			return strconv.FormatFloat(v.f, 'f', -1, 64)
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return "<invalid>"
}

// Raw formats the value without quoting strings, as it appears on a
// program's result line.
func (v Value) Raw() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

// ParseValue converts text into a value of the requested kind.
// Integers accept real notation and are truncated, so "10.000000" parses as 10;
// values outside the int64 range are rejected.
func ParseValue(kind Kind, text string) (Value, error) {
	t := strings.TrimSpace(text)
	switch kind {
	case KindInt:
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return IntValue(i), nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("parse %q as Int: invalid number", text)
		}
		f = math.Trunc(f)
		if f >= 0x1p63 || f < -0x1p63 {
			return Value{}, fmt.Errorf("parse %q as Int: out of range", text)
		}
		return IntValue(int64(f)), nil
	case KindReal:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("parse %q as Real: invalid number", text)
		}
		return RealValue(f), nil
	case KindString:
		if uq, err := strconv.Unquote(t); err == nil {
			return StringValue(uq), nil
		}
		return StringValue(text), nil
	case KindBool:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as Bool: %w", text, err)
		}
		return BoolValue(b), nil
	}
	return Value{}, fmt.Errorf("parse %q: unknown kind %v", text, kind)
}
