package autodiff

// Func is a scalar function of a flat vector of leaves.
type Func func(xs []*Value) *Value

// Backward performs reverse-mode accumulation from root into every reachable
// node. Gradients are accumulated, so leaves must be fresh.
func Backward(root *Value) {
	topo := make([]*Value, 0, 64)
	visited := make(map[*Value]bool)

	// iterative post-order; energy graphs can be deep for long term lists
	type frame struct {
		v    *Value
		next int
	}
	stack := []frame{{v: root}}
	visited[root] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.v.parents) {
			p := top.v.parents[top.next]
			top.next++
			if !visited[p] {
				visited[p] = true
				stack = append(stack, frame{v: p})
			}
			continue
		}
		topo = append(topo, top.v)
		stack = stack[:len(stack)-1]
	}

	root.Grad = 1
	for i := len(topo) - 1; i >= 0; i-- {
		if topo[i].backFn != nil {
			topo[i].backFn()
		}
	}
}

// EvalF evaluates f at x without keeping the graph.
func EvalF(f Func) func(x []float64) float64 {
	return func(x []float64) float64 {
		return f(Vars(x)).Data
	}
}

// GradF returns the gradient function of f.
func GradF(f Func) func(x []float64) []float64 {
	return func(x []float64) []float64 {
		_, g := ValueAndGrad(f, x)
		return g
	}
}

// ValueAndGrad evaluates f at x and returns the value with its gradient.
func ValueAndGrad(f Func, x []float64) (float64, []float64) {
	xs := Vars(x)
	y := f(xs)
	Backward(y)
	g := make([]float64, len(xs))
	for i, v := range xs {
		g[i] = v.Grad
	}
	return y.Data, g
}
