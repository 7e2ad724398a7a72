package solver

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Domain is the set of values a variable may still take during search.
// Domains are immutable: narrowing returns a new Domain and leaves the
// receiver untouched, so states can share them freely.
type Domain interface {
	// Kind returns the kind of the values in the domain.
	Kind() Kind

	// Empty reports whether no value remains.
	Empty() bool

	// IsSingleton reports whether exactly one value remains. Real domains
	// narrower than the solver tolerance count as singletons.
	IsSingleton() bool

	// Value returns the remaining value of a singleton domain.
	Value() Value

	// Bounds returns the numeric hull. Text domains return Whole().
	Bounds() Interval

	// Equal reports whether both domains hold the same values.
	Equal(other Domain) bool

	// Hull returns a domain containing the values of both domains.
	Hull(other Domain) Domain

	String() string
}

// IntervalDomain holds a closed numeric range. Integer ranges always have integral bounds.
type IntervalDomain struct {
	kind Kind
	iv   Interval
}

// NewIntDomain returns the integers in [lo, hi].
func NewIntDomain(lo, hi int64) *IntervalDomain {
	return &IntervalDomain{kind: KindInt, iv: Interval{float64(lo), float64(hi)}}
}

// NewRealDomain returns the reals in [lo, hi].
func NewRealDomain(lo, hi float64) *IntervalDomain {
	return &IntervalDomain{kind: KindReal, iv: Interval{lo, hi}}
}

func (d *IntervalDomain) Kind() Kind       { return d.kind }
func (d *IntervalDomain) Empty() bool      { return d.iv.Empty() }
func (d *IntervalDomain) Bounds() Interval { return d.iv }

func (d *IntervalDomain) IsSingleton() bool {
	if d.iv.Empty() {
		return false
	}
	if d.kind == KindInt {
		return d.iv.Lo == d.iv.Hi
	}
	return d.iv.Width() <= realTolerance*math.Max(1, math.Abs(d.iv.Lo))
}

func (d *IntervalDomain) Value() Value {
	if d.kind == KindInt {
		return IntValue(int64(d.iv.Lo))
	}
	if d.iv.IsPoint() {
		return RealValue(d.iv.Lo)
	}
	return RealValue(d.iv.Mid())
}

// Narrow intersects the domain with iv. It returns the receiver itself when
// the intersection does not shrink the domain noticeably, which lets callers
// detect a fixed point by pointer comparison.
func (d *IntervalDomain) Narrow(iv Interval) *IntervalDomain {
	n := d.iv.Intersect(iv)
	if d.kind == KindInt {
		n = n.Integral()
	}
	if n.Empty() {
		return &IntervalDomain{kind: d.kind, iv: n}
	}
	if n.Lo == d.iv.Lo && n.Hi == d.iv.Hi {
		return d
	}
	if d.kind == KindReal && !significant(d.iv.Lo, n.Lo) && !significant(d.iv.Hi, n.Hi) {
		return d
	}
	return &IntervalDomain{kind: d.kind, iv: n}
}

// significant reports whether moving a real bound from old to new is worth a
// new state. Tiny moves would make propagation crawl towards a limit.
func significant(old, next float64) bool {
	if old == next {
		return false
	}
	if math.IsInf(old, 0) || math.IsInf(next, 0) {
		return true
	}
	return math.Abs(old-next) > 1e-10*math.Max(1, math.Abs(old))
}

func (d *IntervalDomain) Equal(other Domain) bool {
	o, ok := other.(*IntervalDomain)
	return ok && o.kind == d.kind && o.iv == d.iv
}

func (d *IntervalDomain) Hull(other Domain) Domain {
	o, ok := other.(*IntervalDomain)
	if !ok {
		return d
	}
	return &IntervalDomain{kind: d.kind, iv: d.iv.Hull(o.iv)}
}

func (d *IntervalDomain) String() string {
	if d.kind == KindInt && !d.iv.Empty() {
		return fmt.Sprintf("{%d..%d}", int64(d.iv.Lo), int64(d.iv.Hi))
	}
	return d.iv.String()
}

// SetDomain is a finite set of text values, kept sorted.
type SetDomain struct {
	values []string
}

// NewSetDomain builds a text domain from values, dropping duplicates.
func NewSetDomain(values ...string) *SetDomain {
	vs := slices.Clone(values)
	slices.Sort(vs)
	return &SetDomain{values: slices.Compact(vs)}
}

func (d *SetDomain) Kind() Kind        { return KindString }
func (d *SetDomain) Empty() bool       { return len(d.values) == 0 }
func (d *SetDomain) IsSingleton() bool { return len(d.values) == 1 }
func (d *SetDomain) Bounds() Interval  { return Whole() }
func (d *SetDomain) Count() int        { return len(d.values) }

// Values returns the members in sorted order. The slice must not be modified.
func (d *SetDomain) Values() []string { return d.values }

func (d *SetDomain) Value() Value {
	if len(d.values) == 0 {
		return StringValue("")
	}
	return StringValue(d.values[0])
}

// Has reports membership.
func (d *SetDomain) Has(v string) bool {
	_, ok := slices.BinarySearch(d.values, v)
	return ok
}

// Remove returns the domain without v, or the receiver when v is absent.
func (d *SetDomain) Remove(v string) *SetDomain {
	i, ok := slices.BinarySearch(d.values, v)
	if !ok {
		return d
	}
	return &SetDomain{values: slices.Delete(slices.Clone(d.values), i, i+1)}
}

// Intersect returns the common members, or the receiver when nothing is removed.
func (d *SetDomain) Intersect(o *SetDomain) *SetDomain {
	out := make([]string, 0, len(d.values))
	for _, v := range d.values {
		if o.Has(v) {
			out = append(out, v)
		}
	}
	if len(out) == len(d.values) {
		return d
	}
	return &SetDomain{values: out}
}

func (d *SetDomain) Equal(other Domain) bool {
	o, ok := other.(*SetDomain)
	return ok && slices.Equal(d.values, o.values)
}

func (d *SetDomain) Hull(other Domain) Domain {
	o, ok := other.(*SetDomain)
	if !ok {
		return d
	}
	return NewSetDomain(append(slices.Clone(d.values), o.values...)...)
}

func (d *SetDomain) String() string {
	quoted := make([]string, len(d.values))
	for i, v := range d.values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "{" + strings.Join(quoted, ", ") + "}"
}

// singletonDomain returns a domain holding only v.
func singletonDomain(kind Kind, v Value) Domain {
	switch kind {
	case KindString:
		return NewSetDomain(v.Text())
	case KindInt:
		return NewIntDomain(v.Int(), v.Int())
	}
	return NewRealDomain(v.Float(), v.Float())
}
