// Package constraint is the library of named objective and constraint
// functions a layout is optimized against.
//
// Constraints return a signed violation: zero or negative when satisfied,
// positive by the amount they are violated. Objectives return a value that is
// minimized directly. The registry is filled once at package init, so an
// unknown name is caught when a state is built, never inside the energy.
package constraint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/layoutopt/internal/autodiff"
	"github.com/san-kum/layoutopt/internal/shape"
)

var (
	ErrUnknownTerm     = errors.New("constraint: unknown objective or constraint")
	ErrUnsupportedPair = errors.New("constraint: unsupported shape pair")
	ErrArity           = errors.New("constraint: wrong number of arguments")
)

type Kind int

const (
	Objective Kind = iota
	Constraint
)

func (k Kind) String() string {
	if k == Constraint {
		return "constraint"
	}
	return "objective"
}

// Fn evaluates a term on shapes already validated by Entry.Check.
type Fn func(args []shape.Bound, params []float64) (*autodiff.Value, error)

type Entry struct {
	Name string
	Kind Kind
	Doc  string
	// Accepts lists the kinds allowed at each argument position.
	Accepts   [][]shape.Kind
	MaxParams int
	Fn        Fn
}

// UnsupportedShapePairError is returned when a term is applied to shapes it
// has no definition for.
type UnsupportedShapePairError struct {
	Term  string
	Kinds []shape.Kind
}

func (e *UnsupportedShapePairError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = string(k)
	}
	return fmt.Sprintf("constraint: %s does not support (%s)", e.Term, strings.Join(names, ", "))
}

func (e *UnsupportedShapePairError) Unwrap() error { return ErrUnsupportedPair }

// Arity is the number of shape arguments.
func (e Entry) Arity() int { return len(e.Accepts) }

// Check validates argument kinds and parameter count.
func (e Entry) Check(kinds []shape.Kind, nparams int) error {
	if len(kinds) != e.Arity() {
		return fmt.Errorf("%w: %s takes %d shapes, got %d", ErrArity, e.Name, e.Arity(), len(kinds))
	}
	if nparams > e.MaxParams {
		return fmt.Errorf("%w: %s takes at most %d parameters, got %d", ErrArity, e.Name, e.MaxParams, nparams)
	}
	for i, k := range kinds {
		if !contains(e.Accepts[i], k) {
			return &UnsupportedShapePairError{Term: e.Name, Kinds: kinds}
		}
	}
	return nil
}

func contains(ks []shape.Kind, k shape.Kind) bool {
	for _, c := range ks {
		if c == k {
			return true
		}
	}
	return false
}

var registry = make(map[string]Entry)

func register(e Entry) {
	if _, dup := registry[e.Name]; dup {
		panic("constraint: duplicate registration of " + e.Name)
	}
	registry[e.Name] = e
}

// Lookup finds a term by name.
func Lookup(name string) (Entry, error) {
	e, ok := registry[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownTerm, name)
	}
	return e, nil
}

// List returns every registered term sorted by name.
func List() []Entry {
	out := make([]Entry, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// param returns params[i] or def when absent.
func param(params []float64, i int, def float64) float64 {
	if i < len(params) {
		return params[i]
	}
	return def
}
