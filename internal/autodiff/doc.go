// Package autodiff provides reverse-mode automatic differentiation over scalars.
//
// Every arithmetic operation on a [Value] records its inputs and a local
// backward rule, building a computation graph as a side effect of evaluation:
//
//   - [Const] / [Var]: leaf values
//   - [Value.Add], [Value.Sub], [Value.Mul], [Value.Div]: binary arithmetic
//   - [Value.Square], [Value.Pow], [Value.Sqrt], [Value.Abs], [Value.ReLU]: unary ops
//   - [Backward]: propagates gradients from a root to every leaf
//
// # Example
//
//	f := func(xs []*autodiff.Value) *autodiff.Value {
//	    return xs[0].Square().Add(xs[1].Square())
//	}
//	grad := autodiff.GradF(f)
//	g := grad([]float64{3, 4}) // [6 8]
//
// # Thread Safety
//
// A graph is owned by the goroutine that built it. Independent graphs may be
// evaluated concurrently.
package autodiff
