package solver

import (
	"sort"
	"strings"
)

// Assignment maps variable names to concrete values. A solver model is an
// Assignment covering every variable of the Model; callers may project it
// to fewer names. Assignments returned by the solver are never mutated by it.
type Assignment map[string]Value

// Keys returns the variable names in sorted order.
func (a Assignment) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Project returns a new assignment restricted to names present in a.
func (a Assignment) Project(names []string) Assignment {
	out := make(Assignment, len(names))
	for _, n := range names {
		if v, ok := a[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Clone returns a shallow copy.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both assignments bind the same names to equal values.
func (a Assignment) Equal(b Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

// String renders the assignment as "k1=v1 k2=v2" with sorted keys.
func (a Assignment) String() string {
	var sb strings.Builder
	for i, k := range a.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(a[k].Raw())
	}
	return sb.String()
}
