package solver

import "testing"

func TestIntervalDomain_Narrow(t *testing.T) {
	d := NewIntDomain(-10, 10)
	n := d.Narrow(Interval{-2.5, 4.2})
	if got := n.Bounds(); got != (Interval{-2, 4}) {
		t.Errorf("Narrow() bounds = %v, want [-2, 4]", got)
	}
	if d.Narrow(Interval{-100, 100}) != d {
		t.Error("Narrow() to a superset should return the receiver")
	}
	if !d.Narrow(Interval{11, 12}).Empty() {
		t.Error("Narrow() to a disjoint interval should be empty")
	}
	if got := d.String(); got != "{-10..10}" {
		t.Errorf("String() = %q", got)
	}
}

func TestIntervalDomain_RealSingleton(t *testing.T) {
	d := NewRealDomain(1, 1+1e-12)
	if !d.IsSingleton() {
		t.Error("a sub-tolerance real domain should be a singleton")
	}
	if NewRealDomain(1, 1.1).IsSingleton() {
		t.Error("[1, 1.1] is not a singleton")
	}
	// Insignificant moves keep the receiver.
	r := NewRealDomain(0, 10)
	if r.Narrow(Interval{1e-14, 10}) != r {
		t.Error("Narrow() by rounding noise should return the receiver")
	}
}

func TestSetDomain(t *testing.T) {
	d := NewSetDomain("b", "a", "c", "a")
	if d.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", d.Count())
	}
	if !d.Has("a") || d.Has("z") {
		t.Error("Has() mismatch")
	}
	r := d.Remove("b")
	if r.Count() != 2 || r.Has("b") || !d.Has("b") {
		t.Error("Remove() must not mutate the receiver")
	}
	if d.Remove("z") != d {
		t.Error("Remove() of an absent value should return the receiver")
	}
	i := d.Intersect(NewSetDomain("c", "x"))
	if !i.IsSingleton() || i.Value().Text() != "c" {
		t.Errorf("Intersect() = %v", i)
	}
	if h := i.Hull(NewSetDomain("a")); !h.Equal(NewSetDomain("a", "c")) {
		t.Errorf("Hull() = %v", h)
	}
}
