package layout

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/layoutopt/internal/autodiff"
	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/optim"
	"github.com/san-kum/layoutopt/internal/shape"
)

// Penalty maps a signed violation to max(v, 0)². It is zero with zero slope
// for satisfied constraints and has a continuous first derivative at v = 0.
func Penalty(v *autodiff.Value) *autodiff.Value {
	return v.ReLU().Square()
}

type compiled struct {
	term   Term
	shapes []shape.Shape
	fn     constraint.Fn
}

// Energy is the compiled energy of a State: a pure function of the flat
// varying vector that closes over fixed fields and term parameters.
type Energy struct {
	terms []compiled
	n     int
}

// EvalEnergyOn compiles the active terms of st. Kind mismatches and missing
// shape fields surface here, before any optimization step.
func EvalEnergyOn(st *State) (*Energy, error) {
	e := &Energy{terms: make([]compiled, 0, len(st.Terms)), n: len(st.Varying)}
	probe := autodiff.Vars(st.Varying)

	for _, t := range st.Terms {
		entry, err := constraint.Lookup(t.Name)
		if err != nil {
			return nil, err
		}
		shapes := make([]shape.Shape, len(t.Args))
		kinds := make([]shape.Kind, len(t.Args))
		for i, name := range t.Args {
			s, ok := st.shapeByName(name)
			if !ok {
				return nil, decodeErr(name, "", "%s references an unknown shape", t.Name)
			}
			shapes[i], kinds[i] = s, s.Kind
		}
		if err := entry.Check(kinds, len(t.Params)); err != nil {
			return nil, err
		}

		c := compiled{term: t, shapes: shapes, fn: entry.Fn}
		if _, err := c.eval(probe); err != nil {
			return nil, fmt.Errorf("layout: compile %s: %w", t.Name, err)
		}
		e.terms = append(e.terms, c)
	}
	return e, nil
}

func (c compiled) eval(xs []*autodiff.Value) (*autodiff.Value, error) {
	args := make([]shape.Bound, len(c.shapes))
	for i, s := range c.shapes {
		args[i] = shape.Bind(s, xs)
	}
	v, err := c.fn(args, c.term.Params)
	if err != nil {
		return nil, err
	}
	if c.term.Kind == constraint.Constraint {
		return Penalty(v), nil
	}
	return v, nil
}

// evalOrNaN never fails for a compiled term; NaN is caught by the minimizer.
func (c compiled) evalOrNaN(xs []*autodiff.Value) *autodiff.Value {
	v, err := c.eval(xs)
	if err != nil {
		return autodiff.Const(math.NaN())
	}
	return v
}

// Func returns the energy as a differentiable function. With no active
// terms it is identically zero.
func (e *Energy) Func() autodiff.Func {
	return func(xs []*autodiff.Value) *autodiff.Value {
		vals := make([]*autodiff.Value, len(e.terms))
		for i, c := range e.terms {
			vals[i] = c.evalOrNaN(xs)
		}
		return autodiff.Sum(vals...)
	}
}

func (e *Energy) Value(x []float64) float64 {
	return autodiff.EvalF(e.Func())(x)
}

func (e *Energy) Gradient(x []float64) []float64 {
	return autodiff.GradF(e.Func())(x)
}

func (e *Energy) valueAndNorm(x []float64) (float64, float64) {
	v, g := autodiff.ValueAndGrad(e.Func(), x)
	return v, optim.Norm(g)
}

// ParallelGradient differentiates every term on its own graph and sums the
// per-term gradients in term order.
func (e *Energy) ParallelGradient(ctx context.Context, x []float64, workers int) ([]float64, error) {
	grads := make([][]float64, len(e.terms))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, c := range e.terms {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, grads[i] = autodiff.ValueAndGrad(c.evalOrNaN, x)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]float64, e.n)
	for _, tg := range grads {
		for j, v := range tg {
			out[j] += v
		}
	}
	return out, nil
}

// TermValue is one term's contribution at a point.
type TermValue struct {
	Term Term
	// Raw is the signed violation for constraints or the objective value.
	Raw    float64
	Energy float64
}

func (t TermValue) Satisfied() bool {
	return t.Term.Kind == constraint.Objective || t.Raw <= 0
}

// Breakdown evaluates each term separately at x.
func (e *Energy) Breakdown(x []float64) []TermValue {
	xs := autodiff.Vars(x)
	out := make([]TermValue, len(e.terms))
	for i, c := range e.terms {
		args := make([]shape.Bound, len(c.shapes))
		for j, s := range c.shapes {
			args[j] = shape.Bind(s, xs)
		}
		raw := math.NaN()
		if v, err := c.fn(args, c.term.Params); err == nil {
			raw = v.Data
		}
		out[i] = TermValue{Term: c.term, Raw: raw, Energy: c.evalOrNaN(xs).Data}
	}
	return out
}
