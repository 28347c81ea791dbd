// Package geom holds the differentiable geometry used by constraints.
package geom

import (
	"errors"
	"fmt"

	"github.com/san-kum/layoutopt/internal/autodiff"
	"github.com/san-kum/layoutopt/internal/shape"
)

var ErrShapeField = errors.New("geom: shape field unavailable")

// ShapeFieldError reports a shape that lacks a field a projector needs.
type ShapeFieldError struct {
	Shape string
	Kind  shape.Kind
	Field string
}

func (e *ShapeFieldError) Error() string {
	return fmt.Sprintf("geom: shape %q (%s) has no %s", e.Shape, e.Kind, e.Field)
}

func (e *ShapeFieldError) Unwrap() error { return ErrShapeField }

type Point struct {
	X, Y *autodiff.Value
}

func Pt(x, y float64) Point {
	return Point{X: autodiff.Const(x), Y: autodiff.Const(y)}
}

// Distance is the Euclidean distance between a and b. It is exactly zero for
// coincident points and keeps a finite derivative there.
func Distance(a, b Point) *autodiff.Value {
	return autodiff.Hypot(a.X.Sub(b.X), a.Y.Sub(b.Y))
}

type projector func(b shape.Bound) (Point, error)

func field(b shape.Bound, name string) (*autodiff.Value, error) {
	v, ok := b.Field(name)
	if !ok {
		return nil, &ShapeFieldError{Shape: b.Name, Kind: b.Kind, Field: name}
	}
	return v, nil
}

func xy(b shape.Bound) (Point, error) {
	x, err := field(b, "x")
	if err != nil {
		return Point{}, err
	}
	y, err := field(b, "y")
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

func midpoint(b shape.Bound) (Point, error) {
	var v [4]*autodiff.Value
	for i, name := range []string{"startX", "startY", "endX", "endY"} {
		f, err := field(b, name)
		if err != nil {
			return Point{}, err
		}
		v[i] = f
	}
	return Point{X: v[0].Add(v[2]).MulF(0.5), Y: v[1].Add(v[3]).MulF(0.5)}, nil
}

// centers must cover every shape.Kind; TestCenterTotal enforces it.
var centers = map[shape.Kind]projector{
	shape.Circle:    xy,
	shape.Square:    xy,
	shape.Rectangle: xy,
	shape.Ellipse:   xy,
	shape.Label:     xy,
	shape.Line:      midpoint,
}

// Center extracts the position of a shape.
func Center(b shape.Bound) (Point, error) {
	p, ok := centers[b.Kind]
	if !ok {
		return Point{}, &ShapeFieldError{Shape: b.Name, Kind: b.Kind, Field: "center"}
	}
	return p(b)
}

// Radius is the size projection used by containment-style constraints:
// inscribed radius for round and square kinds, half diagonal for boxes.
func Radius(b shape.Bound) (*autodiff.Value, error) {
	switch b.Kind {
	case shape.Circle:
		return field(b, "r")
	case shape.Square:
		s, err := field(b, "side")
		if err != nil {
			return nil, err
		}
		return s.MulF(0.5), nil
	case shape.Ellipse:
		rx, err := field(b, "rx")
		if err != nil {
			return nil, err
		}
		ry, err := field(b, "ry")
		if err != nil {
			return nil, err
		}
		return rx.Min(ry), nil
	case shape.Rectangle, shape.Label:
		w, err := field(b, "w")
		if err != nil {
			return nil, err
		}
		h, err := field(b, "h")
		if err != nil {
			return nil, err
		}
		return w.Square().Add(h.Square()).Sqrt().MulF(0.5), nil
	}
	return nil, &ShapeFieldError{Shape: b.Name, Kind: b.Kind, Field: "radius"}
}

// HasRadius reports whether Radius is defined for k.
func HasRadius(k shape.Kind) bool {
	return k != shape.Line
}
