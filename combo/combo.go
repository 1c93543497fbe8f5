// Package combo implements the multi-valued field model used throughout the
// register pipeline. A single register cell sometimes reports several atomic
// facts at once (several ISINs, several originator countries), so a field is
// represented as a Value: missing, a single scalar, or a Combo of scalars.
package combo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the three states of a Value.
type Kind int

const (
	Missing Kind = iota
	Scalar
	Multi
)

// Value is a field that is either missing, one scalar, or a set of scalars.
// The set is never empty: promoting zero raw values yields Missing, not an
// empty Combo. Values are immutable after construction.
type Value[T comparable] struct {
	kind Kind
	one  T
	set  map[T]struct{}
}

// None returns a missing Value.
func None[T comparable]() Value[T] {
	return Value[T]{kind: Missing}
}

// Of returns a scalar Value.
func Of[T comparable](v T) Value[T] {
	return Value[T]{kind: Scalar, one: v}
}

// NewCombo builds a Combo from one or more raw values, collapsing duplicates.
// Called with no values it returns Missing. A single value still produces a
// Combo: promotion marks the cell as having been multi-value formatted, which
// matters to the enrichment lookup path.
func NewCombo[T comparable](values ...T) Value[T] {
	if len(values) == 0 {
		return None[T]()
	}
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Value[T]{kind: Multi, set: set}
}

// Kind reports whether the Value is Missing, Scalar or Multi.
func (v Value[T]) Kind() Kind { return v.kind }

// IsMissing reports whether the Value holds nothing.
func (v Value[T]) IsMissing() bool { return v.kind == Missing }

// IsMulti reports whether the Value is a Combo.
func (v Value[T]) IsMulti() bool { return v.kind == Multi }

// ScalarValue returns the single value and true when the Value is Scalar.
func (v Value[T]) ScalarValue() (T, bool) {
	if v.kind == Scalar {
		return v.one, true
	}
	var zero T
	return zero, false
}

// Len returns the number of member values (0 for Missing, 1 for Scalar).
func (v Value[T]) Len() int {
	switch v.kind {
	case Scalar:
		return 1
	case Multi:
		return len(v.set)
	}
	return 0
}

// Has reports whether m is a member of the Value. A scalar has exactly one
// member, itself.
func (v Value[T]) Has(m T) bool {
	switch v.kind {
	case Scalar:
		return v.one == m
	case Multi:
		_, ok := v.set[m]
		return ok
	}
	return false
}

// Members returns all member values in a stable sorted order. Missing values
// return nil.
func (v Value[T]) Members() []T {
	switch v.kind {
	case Scalar:
		return []T{v.one}
	case Multi:
		out := make([]T, 0, len(v.set))
		for m := range v.set {
			out = append(out, m)
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
		})
		return out
	}
	return nil
}

// Equal compares two Values. Two Combos are equal iff their member sets are
// equal, independent of construction order. A scalar compared against a Combo
// is a membership test. Missing only equals Missing.
func (v Value[T]) Equal(other Value[T]) bool {
	switch {
	case v.kind == Missing || other.kind == Missing:
		return v.kind == other.kind
	case v.kind == Scalar && other.kind == Scalar:
		return v.one == other.one
	case v.kind == Multi && other.kind == Multi:
		if len(v.set) != len(other.set) {
			return false
		}
		for m := range v.set {
			if _, ok := other.set[m]; !ok {
				return false
			}
		}
		return true
	case v.kind == Scalar:
		return other.Has(v.one)
	default:
		return v.Has(other.one)
	}
}

// Key returns a stable string identity computed over the sorted members, so
// Values can be used as map keys. Two equal Combos produce the same Key
// regardless of construction order.
func (v Value[T]) Key() string {
	switch v.kind {
	case Missing:
		return ""
	case Scalar:
		return fmt.Sprint(v.one)
	}
	parts := make([]string, 0, len(v.set))
	for _, m := range v.Members() {
		parts = append(parts, fmt.Sprint(m))
	}
	return strings.Join(parts, " / ")
}

// String renders the members joined by " / ", matching how combined cells are
// displayed on the dashboard.
func (v Value[T]) String() string { return v.Key() }

// Replace substitutes every member through mapping, leaving members without a
// mapping entry unchanged. The input is never mutated; scalar in, scalar out
// and Combo in, Combo out.
func Replace[T comparable](v Value[T], mapping map[T]T) Value[T] {
	switch v.kind {
	case Scalar:
		if r, ok := mapping[v.one]; ok {
			return Of(r)
		}
		return v
	case Multi:
		out := make([]T, 0, len(v.set))
		for m := range v.set {
			if r, ok := mapping[m]; ok {
				m = r
			}
			out = append(out, m)
		}
		return NewCombo(out...)
	}
	return v
}

// ReplaceSeries applies Replace to every entry of a series.
func ReplaceSeries[T comparable](series []Value[T], mapping map[T]T) []Value[T] {
	out := make([]Value[T], len(series))
	for i, v := range series {
		out[i] = Replace(v, mapping)
	}
	return out
}

// EqualSeries compares two same-length series pairwise under the Equal rules.
func EqualSeries[T comparable](a, b []Value[T]) ([]bool, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(a), len(b))
	}
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i].Equal(b[i])
	}
	return out, nil
}

// DistinctMembers returns the union of all member values across a series,
// sorted. Combos contribute all of their members, scalars contribute
// themselves and missing entries contribute nothing. Used to build the
// identifier working set for reference-data reconciliation.
func DistinctMembers[T comparable](series []Value[T]) []T {
	set := make(map[T]struct{})
	for _, v := range series {
		switch v.kind {
		case Scalar:
			set[v.one] = struct{}{}
		case Multi:
			for m := range v.set {
				set[m] = struct{}{}
			}
		}
	}
	out := make([]T, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

// MarshalJSON encodes Missing as null, a scalar as its plain JSON value and a
// Combo as a sorted array of members.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Missing:
		return []byte("null"), nil
	case Scalar:
		return json.Marshal(v.one)
	}
	return json.Marshal(v.Members())
}

// UnmarshalJSON reverses MarshalJSON: null, plain value or array of values.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = None[T]()
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var members []T
		if err := json.Unmarshal(data, &members); err != nil {
			return err
		}
		*v = NewCombo(members...)
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*v = Of(one)
	return nil
}
