// Package shape defines the typed shapes a layout is made of.
//
// A shape's geometric fields are slots: either a fixed literal or an index
// into the flat vector of varying values that the optimizer moves.
package shape

import (
	"fmt"
	"sort"

	"github.com/san-kum/layoutopt/internal/autodiff"
)

type Kind string

const (
	Circle    Kind = "Circle"
	Square    Kind = "Square"
	Rectangle Kind = "Rectangle"
	Ellipse   Kind = "Ellipse"
	Label     Kind = "Label"
	Line      Kind = "Line"
)

// fieldOrder is the canonical order in which a kind's varying fields are
// assigned indices. It is also the set of required geometric fields.
var fieldOrder = map[Kind][]string{
	Circle:    {"x", "y", "r"},
	Square:    {"x", "y", "side"},
	Rectangle: {"x", "y", "w", "h"},
	Ellipse:   {"x", "y", "rx", "ry"},
	Label:     {"x", "y", "w", "h"},
	Line:      {"startX", "startY", "endX", "endY"},
}

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(fieldOrder))
	for k := range fieldOrder {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := fieldOrder[k]; !ok {
		return "", fmt.Errorf("unknown shape kind %q", s)
	}
	return k, nil
}

// Fields returns the canonical field order for k.
func (k Kind) Fields() []string {
	return fieldOrder[k]
}

func (k Kind) HasField(name string) bool {
	for _, f := range fieldOrder[k] {
		if f == name {
			return true
		}
	}
	return false
}

// Slot is either a fixed value or a position in the varying vector.
type Slot struct {
	Varying bool
	Index   int
	Value   float64
}

func Fixed(v float64) Slot { return Slot{Value: v} }
func Varying(i int) Slot   { return Slot{Varying: true, Index: i} }

// Resolve returns the concrete value of the slot against x.
func (s Slot) Resolve(x []float64) float64 {
	if s.Varying {
		return x[s.Index]
	}
	return s.Value
}

type Shape struct {
	Name   string
	Kind   Kind
	Fields map[string]Slot
	Props  map[string]string
}

// Resolved returns every geometric field as a number.
func (s Shape) Resolved(x []float64) map[string]float64 {
	out := make(map[string]float64, len(s.Fields))
	for name, slot := range s.Fields {
		out[name] = slot.Resolve(x)
	}
	return out
}

// Bound is a shape whose slots are resolved against a graph of leaves.
type Bound struct {
	Shape
	vals map[string]*autodiff.Value
}

// Bind resolves each slot: varying slots alias xs by index, fixed slots become
// constants.
func Bind(s Shape, xs []*autodiff.Value) Bound {
	vals := make(map[string]*autodiff.Value, len(s.Fields))
	for name, slot := range s.Fields {
		if slot.Varying {
			vals[name] = xs[slot.Index]
		} else {
			vals[name] = autodiff.Const(slot.Value)
		}
	}
	return Bound{Shape: s, vals: vals}
}

// Field returns the bound value of name.
func (b Bound) Field(name string) (*autodiff.Value, bool) {
	v, ok := b.vals[name]
	return v, ok
}
