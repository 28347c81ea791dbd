// Package optim minimizes a scalar energy by gradient descent with a
// backtracking line search.
//
// The minimizer never differentiates anything itself: callers pass the energy
// and its gradient as plain functions of the flat variable vector, typically
// produced by [autodiff.EvalF] and [autodiff.GradF].
//
//	res, err := optim.Minimize(ctx, f, grad, x0, optim.DefaultOptions())
//
// Each accepted step satisfies the Armijo sufficient-decrease condition
//
//	f(x - s·g) < f(x) - c·s·‖g‖²
//
// so the energy strictly decreases across every step that is taken.
package optim
