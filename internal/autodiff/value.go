package autodiff

import "math"

// Value is a differentiable scalar node.
type Value struct {
	Data float64
	Grad float64

	parents []*Value
	backFn  func()
}

// Const creates a leaf holding f.
func Const(f float64) *Value {
	return &Value{Data: f}
}

// Var creates a leaf that is an input of the function being differentiated.
func Var(f float64) *Value {
	return &Value{Data: f}
}

// Vars lifts a flat vector into leaves.
func Vars(xs []float64) []*Value {
	out := make([]*Value, len(xs))
	for i, x := range xs {
		out[i] = Var(x)
	}
	return out
}

func (v *Value) Add(o *Value) *Value {
	out := &Value{Data: v.Data + o.Data, parents: []*Value{v, o}}
	out.backFn = func() {
		v.Grad += out.Grad
		o.Grad += out.Grad
	}
	return out
}

func (v *Value) AddF(f float64) *Value {
	out := &Value{Data: v.Data + f, parents: []*Value{v}}
	out.backFn = func() {
		v.Grad += out.Grad
	}
	return out
}

func (v *Value) Sub(o *Value) *Value {
	out := &Value{Data: v.Data - o.Data, parents: []*Value{v, o}}
	out.backFn = func() {
		v.Grad += out.Grad
		o.Grad -= out.Grad
	}
	return out
}

func (v *Value) Neg() *Value {
	return v.MulF(-1)
}

func (v *Value) Mul(o *Value) *Value {
	out := &Value{Data: v.Data * o.Data, parents: []*Value{v, o}}
	vd, od := v.Data, o.Data
	out.backFn = func() {
		v.Grad += od * out.Grad
		o.Grad += vd * out.Grad
	}
	return out
}

func (v *Value) MulF(f float64) *Value {
	out := &Value{Data: v.Data * f, parents: []*Value{v}}
	out.backFn = func() {
		v.Grad += f * out.Grad
	}
	return out
}

// Div returns v / o. Callers guard o away from zero.
func (v *Value) Div(o *Value) *Value {
	out := &Value{Data: v.Data / o.Data, parents: []*Value{v, o}}
	vd, od := v.Data, o.Data
	out.backFn = func() {
		v.Grad += out.Grad / od
		o.Grad -= vd / (od * od) * out.Grad
	}
	return out
}

func (v *Value) Square() *Value {
	out := &Value{Data: v.Data * v.Data, parents: []*Value{v}}
	vd := v.Data
	out.backFn = func() {
		v.Grad += 2 * vd * out.Grad
	}
	return out
}

// Pow returns v^p for a constant exponent.
func (v *Value) Pow(p float64) *Value {
	out := &Value{Data: math.Pow(v.Data, p), parents: []*Value{v}}
	vd := v.Data
	out.backFn = func() {
		v.Grad += p * math.Pow(vd, p-1) * out.Grad
	}
	return out
}

// Sqrt returns √v. At zero the subgradient 0 is used so coincident points
// never produce an infinite derivative.
func (v *Value) Sqrt() *Value {
	s := math.Sqrt(v.Data)
	out := &Value{Data: s, parents: []*Value{v}}
	out.backFn = func() {
		if s > 0 {
			v.Grad += 0.5 / s * out.Grad
		}
	}
	return out
}

// Hypot returns √(a² + b²). At the origin the derivative along +a is used,
// so a coincident pair still has a direction to separate along.
func Hypot(a, b *Value) *Value {
	d := math.Hypot(a.Data, b.Data)
	out := &Value{Data: d, parents: []*Value{a, b}}
	ad, bd := a.Data, b.Data
	out.backFn = func() {
		if d == 0 {
			a.Grad += out.Grad
			return
		}
		a.Grad += ad / d * out.Grad
		b.Grad += bd / d * out.Grad
	}
	return out
}

// Abs returns |v| with subgradient 0 at the origin.
func (v *Value) Abs() *Value {
	out := &Value{Data: math.Abs(v.Data), parents: []*Value{v}}
	var sign float64
	switch {
	case v.Data > 0:
		sign = 1
	case v.Data < 0:
		sign = -1
	}
	out.backFn = func() {
		v.Grad += sign * out.Grad
	}
	return out
}

// ReLU returns max(v, 0).
func (v *Value) ReLU() *Value {
	if v.Data <= 0 {
		return &Value{Data: 0, parents: []*Value{v}, backFn: func() {}}
	}
	out := &Value{Data: v.Data, parents: []*Value{v}}
	out.backFn = func() {
		v.Grad += out.Grad
	}
	return out
}

// Min returns the smaller of v and o; ties route the gradient to v.
func (v *Value) Min(o *Value) *Value {
	if o.Data < v.Data {
		return o.MulF(1)
	}
	return v.MulF(1)
}

// Sum adds vs in one node. An empty sum is the constant zero.
func Sum(vs ...*Value) *Value {
	total := 0.0
	for _, v := range vs {
		total += v.Data
	}
	out := &Value{Data: total, parents: vs}
	out.backFn = func() {
		for _, v := range vs {
			v.Grad += out.Grad
		}
	}
	return out
}
