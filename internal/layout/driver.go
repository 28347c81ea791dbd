package layout

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/layoutopt/internal/optim"
)

// StepState runs one bounded batch of descent iterations on st and updates
// its convergence bookkeeping. A terminal st is returned unchanged.
//
// On a NumericDivergenceError st keeps the last point whose energy and
// gradient were finite. Reaching the step ceiling yields a
// DidNotConvergeWarning alongside st.
func StepState(ctx context.Context, st *State) (*State, error) {
	switch st.Status {
	case Converged:
		return st, nil
	case CeilingReached:
		return st, st.warning()
	}
	logger := LoggerFrom(ctx)

	if st.Steps >= st.opts.MaxSteps {
		st.Status = CeilingReached
		return st, st.warning()
	}

	m := optim.New(st.opts.Optim)
	res, err := m.WarmStart(ctx, st.energy.Value, st.gradient(ctx), st.Varying, st.step)
	st.Status = Stepping

	var div *optim.NumericDivergenceError
	switch {
	case errors.As(err, &div):
		if res.Iterations > 0 {
			st.apply(res)
		} else {
			st.Steps++
		}
		logger.Warn("numeric divergence", "state", st.ID, "step", st.Steps, "what", div.What)
		return st, err
	case err != nil:
		if res.X != nil {
			st.apply(res)
		}
		return st, err
	}
	st.apply(res)

	logger.Debug("step",
		"state", st.ID,
		"step", st.Steps,
		"iterations", res.Iterations,
		"energy", res.Energy,
		"grad_norm", res.GradNorm,
		"step_size", res.Step,
		"stalled", res.Stalled,
	)

	// with nothing to move a positive energy can never reach zero
	pinned := len(st.Varying) == 0 && st.Energy > 0
	if res.Converged(st.opts.Optim.EpsGrad) && !pinned {
		st.Status = Converged
		logger.Debug("converged", "state", st.ID, "steps", st.Steps, "energy", st.Energy)
		st.notify()
		return st, nil
	}
	if st.Steps >= st.opts.MaxSteps {
		st.Status = CeilingReached
		st.notify()
		return st, st.warning()
	}
	st.notify()
	return st, nil
}

// StepUntilConvergence repeats StepState until st is terminal. Cancelling ctx
// stops between steps and returns st at the best point reached.
func StepUntilConvergence(ctx context.Context, st *State) (*State, error) {
	for !st.Status.Done() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		var err error
		st, err = StepState(ctx, st)
		if err != nil && !IsWarning(err) {
			return st, err
		}
	}
	if st.Status == CeilingReached {
		w := st.warning()
		LoggerFrom(ctx).Warn("step ceiling reached", "state", st.ID, "steps", w.Steps, "energy", w.Energy, "grad_norm", w.GradNorm)
		return st, w
	}
	return st, nil
}

func (st *State) apply(res optim.Result) {
	st.Varying = res.X
	st.Energy = res.Energy
	st.GradNorm = res.GradNorm
	st.Steps++
	st.Iterations += res.Iterations
	st.step = math.Min(2*res.Step, st.opts.Optim.InitialStep)
}

func (st *State) gradient(ctx context.Context) optim.GradFunc {
	if !st.opts.Parallel || len(st.energy.terms) < 2 {
		return st.energy.Gradient
	}
	return func(x []float64) []float64 {
		g, err := st.energy.ParallelGradient(ctx, x, st.opts.Workers)
		if err != nil {
			// cancelled; the minimizer reports ctx.Err() before the next step
			return st.energy.Gradient(x)
		}
		return g
	}
}

func (st *State) warning() *DidNotConvergeWarning {
	return &DidNotConvergeWarning{Steps: st.Steps, Energy: st.Energy, GradNorm: st.GradNorm}
}
