package layout

import (
	"fmt"
	"math"
	"runtime"

	"github.com/google/uuid"
	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/optim"
	"github.com/san-kum/layoutopt/internal/shape"
)

type Status int

const (
	Uninitialized Status = iota
	Stepping
	Converged
	CeilingReached
)

var statusNames = [...]string{"uninitialized", "stepping", "converged", "ceiling_reached"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("layout: unknown status %q", b)
}

// Done reports whether s is terminal.
func (s Status) Done() bool { return s == Converged || s == CeilingReached }

type Options struct {
	Optim optim.Options
	// MaxSteps is the global ceiling on StepState calls.
	MaxSteps int
	// Parallel evaluates terms concurrently when computing gradients.
	Parallel bool
	Workers  int
}

func DefaultOptions() Options {
	return Options{
		Optim:    optim.DefaultOptions(),
		MaxSteps: 500,
		Workers:  runtime.NumCPU(),
	}
}

func (o Options) Validate() error {
	if err := o.Optim.Validate(); err != nil {
		return err
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("%w: max_steps must be positive, got %d", optim.ErrInvalidOptions, o.MaxSteps)
	}
	return nil
}

// Term is an active objective or constraint bound to named shapes.
type Term struct {
	Name   string
	Kind   constraint.Kind
	Args   []string
	Params []float64
}

// State is a diagram under optimization. Shapes and Terms are fixed at New;
// only Varying and the bookkeeping fields change while stepping.
type State struct {
	ID      string
	Shapes  []shape.Shape
	Terms   []Term
	Varying []float64

	Energy     float64
	GradNorm   float64
	Steps      int
	Iterations int
	Status     Status

	opts      Options
	energy    *Energy
	ranges    [][2]float64
	desc      *Description
	step      float64
	observers []Observer
}

// Default sampling ranges by field name.
var (
	positionRange = [2]float64{-200, 200}
	sizeRange     = [2]float64{10, 100}
)

func defaultRange(field string) [2]float64 {
	switch field {
	case "x", "y", "startX", "startY", "endX", "endY":
		return positionRange
	}
	return sizeRange
}

// New builds a State from desc. It fails before any stepping on a malformed
// description, an unknown term or a shape/term mismatch.
func New(desc *Description, opts Options) (*State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, decodeErr("", "", "empty description")
	}

	st := &State{
		ID:     uuid.NewString(),
		Shapes: make([]shape.Shape, 0, len(desc.Shapes)),
		opts:   opts,
		desc:   desc,
		step:   opts.Optim.InitialStep,
	}

	names := make(map[string]shape.Kind, len(desc.Shapes))
	next := 0
	for _, sd := range desc.Shapes {
		if sd.Name == "" {
			return nil, decodeErr("", "", "shape without a name")
		}
		if _, dup := names[sd.Name]; dup {
			return nil, decodeErr(sd.Name, "", "duplicate shape name")
		}
		kind, err := shape.ParseKind(sd.Kind)
		if err != nil {
			return nil, &StateDecodeError{Shape: sd.Name, Message: "unknown shape variant", Cause: err}
		}
		for f := range sd.Fields {
			if !kind.HasField(f) {
				return nil, decodeErr(sd.Name, f, "not a field of %s", kind)
			}
		}

		s := shape.Shape{Name: sd.Name, Kind: kind, Fields: make(map[string]shape.Slot), Props: sd.Props}
		for _, f := range kind.Fields() {
			fd, ok := sd.Fields[f]
			if !ok {
				return nil, decodeErr(sd.Name, f, "missing required field")
			}
			switch {
			case fd.Varying && fd.Value != nil:
				return nil, decodeErr(sd.Name, f, "field is both varying and fixed")
			case fd.Varying:
				rng := defaultRange(f)
				if len(fd.Range) != 0 {
					if len(fd.Range) != 2 || !(fd.Range[0] <= fd.Range[1]) {
						return nil, decodeErr(sd.Name, f, "range must be [min, max]")
					}
					rng = [2]float64{fd.Range[0], fd.Range[1]}
				}
				s.Fields[f] = shape.Varying(next)
				st.ranges = append(st.ranges, rng)
				next++
			case fd.Value != nil:
				if !isFinite(*fd.Value) {
					return nil, decodeErr(sd.Name, f, "non-finite value")
				}
				s.Fields[f] = shape.Fixed(*fd.Value)
			default:
				return nil, decodeErr(sd.Name, f, "field needs a value or varying")
			}
		}
		names[sd.Name] = kind
		st.Shapes = append(st.Shapes, s)
	}

	if len(desc.VaryingValues) != next {
		return nil, decodeErr("", "", "varying-field count mismatch: %d varying fields, %d values", next, len(desc.VaryingValues))
	}
	for i, v := range desc.VaryingValues {
		if !isFinite(v) {
			return nil, decodeErr("", "", "non-finite varying value at index %d", i)
		}
	}
	st.Varying = append([]float64(nil), desc.VaryingValues...)

	for _, group := range []struct {
		kind  constraint.Kind
		terms []TermDesc
	}{{constraint.Objective, desc.Objectives}, {constraint.Constraint, desc.Constraints}} {
		for _, td := range group.terms {
			entry, err := constraint.Lookup(td.Name)
			if err != nil {
				return nil, err
			}
			if entry.Kind != group.kind {
				return nil, decodeErr("", "", "%s is a %s, listed as a %s", td.Name, entry.Kind, group.kind)
			}
			for _, a := range td.Args {
				if _, ok := names[a]; !ok {
					return nil, decodeErr(a, "", "%s references an unknown shape", td.Name)
				}
			}
			st.Terms = append(st.Terms, Term{
				Name:   td.Name,
				Kind:   entry.Kind,
				Args:   append([]string(nil), td.Args...),
				Params: append([]float64(nil), td.Params...),
			})
		}
	}

	e, err := EvalEnergyOn(st)
	if err != nil {
		return nil, err
	}
	st.energy = e
	st.Energy, st.GradNorm = e.valueAndNorm(st.Varying)
	return st, nil
}

// Reset rebuilds a fresh State from the description st was built from.
func (st *State) Reset() (*State, error) {
	fresh, err := New(st.desc, st.opts)
	if err != nil {
		return nil, err
	}
	fresh.observers = st.observers
	return fresh, nil
}

// Options returns the options st was built with.
func (st *State) Options() Options { return st.opts }

// EnergyFunc returns the compiled energy of st.
func (st *State) EnergyFunc() *Energy { return st.energy }

// Describe returns a description of the current configuration: the original
// shapes and terms with the current varying values.
func (st *State) Describe() *Description {
	d := *st.desc
	d.VaryingValues = append([]float64(nil), st.Varying...)
	return &d
}

func (st *State) shapeByName(name string) (shape.Shape, bool) {
	for _, s := range st.Shapes {
		if s.Name == name {
			return s, true
		}
	}
	return shape.Shape{}, false
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
