package constraint

import (
	"github.com/san-kum/layoutopt/internal/autodiff"
	"github.com/san-kum/layoutopt/internal/geom"
	"github.com/san-kum/layoutopt/internal/shape"
)

// RepelEpsilon bounds repel at coincident centers.
const RepelEpsilon = 1e-3

var (
	anyKind  = shape.Kinds()
	radial   = []shape.Kind{shape.Circle, shape.Square, shape.Ellipse, shape.Rectangle, shape.Label}
	vessels  = []shape.Kind{shape.Circle, shape.Square, shape.Ellipse}
	labels   = []shape.Kind{shape.Label}
	unlabels = []shape.Kind{shape.Circle, shape.Square, shape.Ellipse, shape.Rectangle}
)

func init() {
	register(Entry{
		Name: "contains", Kind: Constraint,
		Doc:     "outer contains inner with padding: dist(c_o, c_i) - (r_o - r_i - pad)",
		Accepts: [][]shape.Kind{vessels, radial}, MaxParams: 1,
		Fn: Contains,
	})
	register(Entry{
		Name: "disjoint", Kind: Constraint,
		Doc:     "shapes do not overlap: (r_a + r_b + pad) - dist",
		Accepts: [][]shape.Kind{radial, radial}, MaxParams: 1,
		Fn: Disjoint,
	})
	register(Entry{
		Name: "outsideOf", Kind: Constraint,
		Doc:     "label lies outside a shape: (r_l + r_s + pad) - dist",
		Accepts: [][]shape.Kind{labels, unlabels}, MaxParams: 1,
		Fn: Disjoint,
	})
	register(Entry{
		Name: "alignHorizontal", Kind: Constraint,
		Doc:     "centers share a y coordinate within tol: |y_a - y_b| - tol",
		Accepts: [][]shape.Kind{anyKind, anyKind}, MaxParams: 1,
		Fn: alignOn(func(p geom.Point) *autodiff.Value { return p.Y }),
	})
	register(Entry{
		Name: "alignVertical", Kind: Constraint,
		Doc:     "centers share an x coordinate within tol: |x_a - x_b| - tol",
		Accepts: [][]shape.Kind{anyKind, anyKind}, MaxParams: 1,
		Fn: alignOn(func(p geom.Point) *autodiff.Value { return p.X }),
	})
	register(Entry{
		Name: "sameSize", Kind: Constraint,
		Doc:     "sizes agree within tol: |r_a - r_b| - tol",
		Accepts: [][]shape.Kind{radial, radial}, MaxParams: 1,
		Fn: SameSize,
	})
	register(Entry{
		Name: "smallerThan", Kind: Constraint,
		Doc:     "a is smaller than b by pad: r_a - r_b + pad",
		Accepts: [][]shape.Kind{radial, radial}, MaxParams: 1,
		Fn: SmallerThan,
	})
	register(Entry{
		Name: "near", Kind: Objective,
		Doc:     "pull centers together: dist^2",
		Accepts: [][]shape.Kind{anyKind, anyKind}, MaxParams: 1,
		Fn: Near,
	})
	register(Entry{
		Name: "centerLabel", Kind: Objective,
		Doc:     "center a label on a shape: dist^2",
		Accepts: [][]shape.Kind{unlabels, labels}, MaxParams: 1,
		Fn: Near,
	})
	register(Entry{
		Name: "repel", Kind: Objective,
		Doc:     "push centers apart: weight / (dist^2 + eps)",
		Accepts: [][]shape.Kind{anyKind, anyKind}, MaxParams: 1,
		Fn: Repel,
	})
}

func centers(a, b shape.Bound) (geom.Point, geom.Point, error) {
	ca, err := geom.Center(a)
	if err != nil {
		return geom.Point{}, geom.Point{}, err
	}
	cb, err := geom.Center(b)
	if err != nil {
		return geom.Point{}, geom.Point{}, err
	}
	return ca, cb, nil
}

func radii(a, b shape.Bound) (*autodiff.Value, *autodiff.Value, error) {
	ra, err := geom.Radius(a)
	if err != nil {
		return nil, nil, err
	}
	rb, err := geom.Radius(b)
	if err != nil {
		return nil, nil, err
	}
	return ra, rb, nil
}

// Contains is dist(center(outer), center(inner)) - (r_outer - r_inner - padding).
func Contains(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	outer, inner := args[0], args[1]
	co, ci, err := centers(outer, inner)
	if err != nil {
		return nil, err
	}
	ro, ri, err := radii(outer, inner)
	if err != nil {
		return nil, err
	}
	pad := param(params, 0, 0)
	return geom.Distance(co, ci).Sub(ro.Sub(ri).AddF(-pad)), nil
}

// Disjoint is (r_a + r_b + padding) - dist(center(a), center(b)).
func Disjoint(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	ca, cb, err := centers(args[0], args[1])
	if err != nil {
		return nil, err
	}
	ra, rb, err := radii(args[0], args[1])
	if err != nil {
		return nil, err
	}
	pad := param(params, 0, 0)
	return ra.Add(rb).AddF(pad).Sub(geom.Distance(ca, cb)), nil
}

func alignOn(axis func(geom.Point) *autodiff.Value) Fn {
	return func(args []shape.Bound, params []float64) (*autodiff.Value, error) {
		ca, cb, err := centers(args[0], args[1])
		if err != nil {
			return nil, err
		}
		tol := param(params, 0, 0)
		return axis(ca).Sub(axis(cb)).Abs().AddF(-tol), nil
	}
}

func SameSize(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	ra, rb, err := radii(args[0], args[1])
	if err != nil {
		return nil, err
	}
	tol := param(params, 0, 0)
	return ra.Sub(rb).Abs().AddF(-tol), nil
}

func SmallerThan(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	ra, rb, err := radii(args[0], args[1])
	if err != nil {
		return nil, err
	}
	pad := param(params, 0, 0)
	return ra.Sub(rb).AddF(pad), nil
}

// Near is the squared center distance scaled by an optional weight.
func Near(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	ca, cb, err := centers(args[0], args[1])
	if err != nil {
		return nil, err
	}
	w := param(params, 0, 1)
	return geom.Distance(ca, cb).Square().MulF(w), nil
}

func Repel(args []shape.Bound, params []float64) (*autodiff.Value, error) {
	ca, cb, err := centers(args[0], args[1])
	if err != nil {
		return nil, err
	}
	w := param(params, 0, 1)
	d2 := geom.Distance(ca, cb).Square().AddF(RepelEpsilon)
	return autodiff.Const(w).Div(d2), nil
}
