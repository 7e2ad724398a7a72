package symbolic

import (
	"sort"
	"strings"

	"github.com/gitrdm/seedsynth/pkg/solver"
)

// Value is a concrete variable value.
type Value = solver.Value

// Assignment maps variable names to concrete values.
type Assignment = solver.Assignment

// RawValue is one variable binding in source-program textual form, as
// printed by an executed program or produced by an oracle.
type RawValue struct {
	Name string
	Text string
}

// RawAssignment is an ordered list of textual bindings.
type RawAssignment []RawValue

// Get returns the text bound to name.
func (r RawAssignment) Get(name string) (string, bool) {
	for _, v := range r {
		if v.Name == name {
			return v.Text, true
		}
	}
	return "", false
}

// Names returns the bound names in order.
func (r RawAssignment) Names() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.Name
	}
	return out
}

func (r RawAssignment) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = v.Name + "=" + v.Text
	}
	return strings.Join(parts, " ")
}

// Raw converts an assignment to textual form with names in sorted order.
func Raw(a Assignment) RawAssignment {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(RawAssignment, len(keys))
	for i, k := range keys {
		out[i] = RawValue{Name: k, Text: a[k].Raw()}
	}
	return out
}

// Project returns the bindings whose names are in names, in the order of names.
func (r RawAssignment) Project(names []string) RawAssignment {
	out := make(RawAssignment, 0, len(names))
	for _, n := range names {
		if t, ok := r.Get(n); ok {
			out = append(out, RawValue{Name: n, Text: t})
		}
	}
	return out
}
