package layout

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// Resample returns a fresh State built from the same description with every
// varying value drawn uniformly from its range. Observers carry over.
func Resample(st *State, rng *rand.Rand) (*State, error) {
	desc := *st.desc
	desc.VaryingValues = make([]float64, len(st.ranges))
	for i, r := range st.ranges {
		desc.VaryingValues[i] = r[0] + rng.Float64()*(r[1]-r[0])
	}
	fresh, err := New(&desc, st.opts)
	if err != nil {
		return nil, err
	}
	fresh.observers = st.observers
	return fresh, nil
}

// BestOfN runs n independent starts to convergence, the first from desc as
// given and the rest resampled with seeds seed, seed+1, ..., and returns the
// state with the lowest final energy. Converged states beat ceiling states.
func BestOfN(ctx context.Context, desc *Description, opts Options, n int, seed int64) (*State, error) {
	base, err := New(desc, opts)
	if err != nil {
		return nil, err
	}
	if n <= 1 {
		st, err := StepUntilConvergence(ctx, base)
		if IsWarning(err) {
			err = nil
		}
		return st, err
	}

	states := make([]*State, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			var st *State
			var err error
			if i == 0 {
				st, err = base.Reset()
			} else {
				st, err = Resample(base, rand.New(rand.NewSource(seed+int64(i))))
			}
			if err != nil {
				return err
			}
			st, err = StepUntilConvergence(gctx, st)
			if err != nil && !IsWarning(err) {
				LoggerFrom(ctx).Debug("start failed", "start", i, "err", err)
				return nil
			}
			states[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var best *State
	for _, st := range states {
		if st == nil {
			continue
		}
		if best == nil || better(st, best) {
			best = st
		}
	}
	if best == nil {
		return nil, errNoStart
	}
	return best, nil
}

func better(a, b *State) bool {
	ac, bc := a.Status == Converged, b.Status == Converged
	if ac != bc {
		return ac
	}
	return a.Energy < b.Energy || (math.IsNaN(b.Energy) && !math.IsNaN(a.Energy))
}
