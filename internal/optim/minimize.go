package optim

import (
	"context"
	"fmt"
	"math"
)

type Func func(x []float64) float64

type GradFunc func(x []float64) []float64

type Options struct {
	// EpsGrad is the gradient norm below which a point counts as converged.
	EpsGrad float64 `yaml:"eps_grad" toml:"eps_grad" json:"eps_grad"`
	// Armijo is the sufficient-decrease constant c.
	Armijo float64 `yaml:"armijo" toml:"armijo" json:"armijo"`
	// InitialStep is the first trial step and the cap on step growth.
	InitialStep float64 `yaml:"initial_step" toml:"initial_step" json:"initial_step"`
	MaxHalvings int     `yaml:"max_halvings" toml:"max_halvings" json:"max_halvings"`
	// MaxIterations bounds the outer steps of one Minimize call.
	MaxIterations int `yaml:"max_iterations" toml:"max_iterations" json:"max_iterations"`
}

func DefaultOptions() Options {
	return Options{
		EpsGrad:       1e-3,
		Armijo:        1e-4,
		InitialStep:   0.2,
		MaxHalvings:   40,
		MaxIterations: 20,
	}
}

func (o Options) Validate() error {
	switch {
	case o.EpsGrad <= 0:
		return fmt.Errorf("%w: eps_grad must be positive, got %g", ErrInvalidOptions, o.EpsGrad)
	case o.Armijo <= 0 || o.Armijo >= 1:
		return fmt.Errorf("%w: armijo must be in (0, 1), got %g", ErrInvalidOptions, o.Armijo)
	case o.InitialStep <= 0:
		return fmt.Errorf("%w: initial_step must be positive, got %g", ErrInvalidOptions, o.InitialStep)
	case o.MaxHalvings < 0:
		return fmt.Errorf("%w: max_halvings must be non-negative, got %d", ErrInvalidOptions, o.MaxHalvings)
	case o.MaxIterations <= 0:
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidOptions, o.MaxIterations)
	}
	return nil
}

type Result struct {
	X          []float64
	Energy     float64
	GradNorm   float64
	Iterations int
	// Step is the last accepted step size; pass it back as a warm start.
	Step float64
	// Stalled is set when backtracking found no decrease.
	Stalled bool
}

// Converged reports whether the final gradient norm is below eps.
func (r Result) Converged(eps float64) bool {
	return r.GradNorm < eps
}

// Minimizer holds scratch buffers reused across calls.
type Minimizer struct {
	opts  Options
	trial []float64
}

func New(opts Options) *Minimizer {
	return &Minimizer{opts: opts}
}

func (m *Minimizer) ensureScratch(n int) {
	if len(m.trial) != n {
		m.trial = make([]float64, n)
	}
}

// Minimize runs gradient descent from x0. It does not modify x0.
func Minimize(ctx context.Context, f Func, grad GradFunc, x0 []float64, opts Options) (Result, error) {
	return New(opts).Minimize(ctx, f, grad, x0)
}

func (m *Minimizer) Minimize(ctx context.Context, f Func, grad GradFunc, x0 []float64) (Result, error) {
	return m.WarmStart(ctx, f, grad, x0, m.opts.InitialStep)
}

// WarmStart is Minimize with the first trial step set to step, typically the
// Step of a previous Result. Growth is still capped at InitialStep.
func (m *Minimizer) WarmStart(ctx context.Context, f Func, grad GradFunc, x0 []float64, step float64) (Result, error) {
	if err := m.opts.Validate(); err != nil {
		return Result{}, err
	}
	if step <= 0 || step > m.opts.InitialStep {
		step = m.opts.InitialStep
	}
	n := len(x0)
	m.ensureScratch(n)

	x := make([]float64, n)
	copy(x, x0)

	res := Result{X: x, Step: step}

	fx := f(x)
	if !finite(fx) {
		return res, &NumericDivergenceError{What: "energy", X: clone(x)}
	}
	res.Energy = fx

	g := grad(x)
	if !allFinite(g) {
		return res, &NumericDivergenceError{What: "gradient", X: clone(x)}
	}
	res.GradNorm = norm(g)

	for res.Iterations < m.opts.MaxIterations {
		if res.GradNorm < m.opts.EpsGrad {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		g2 := res.GradNorm * res.GradNorm
		s := step
		accepted := false
		var ft float64
		for h := 0; h <= m.opts.MaxHalvings; h++ {
			for i := range x {
				m.trial[i] = x[i] - s*g[i]
			}
			ft = f(m.trial)
			if !finite(ft) {
				return res, &NumericDivergenceError{Iteration: res.Iterations, What: "energy", X: clone(x)}
			}
			if ft < fx-m.opts.Armijo*s*g2 {
				accepted = true
				break
			}
			s /= 2
		}
		if !accepted {
			res.Stalled = true
			return res, nil
		}

		gt := grad(m.trial)
		if !allFinite(gt) {
			return res, &NumericDivergenceError{Iteration: res.Iterations + 1, What: "gradient", X: clone(x)}
		}

		copy(x, m.trial)
		fx, g = ft, gt
		res.Iterations++
		res.Energy = fx
		res.GradNorm = norm(g)
		res.Step = s
		step = math.Min(2*s, m.opts.InitialStep)
	}
	return res, nil
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Norm is the Euclidean norm of v.
func Norm(v []float64) float64 { return norm(v) }

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
