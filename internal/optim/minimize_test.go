package optim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/layoutopt/internal/autodiff"
	"github.com/san-kum/layoutopt/internal/optim"
)

func sumOfSquares(xs []*autodiff.Value) *autodiff.Value {
	terms := make([]*autodiff.Value, len(xs))
	for i, x := range xs {
		terms[i] = x.Square()
	}
	return autodiff.Sum(terms...)
}

// rosenbrock is badly conditioned, so line search does real work.
func rosenbrock(xs []*autodiff.Value) *autodiff.Value {
	a := autodiff.Const(1).Sub(xs[0]).Square()
	b := xs[1].Sub(xs[0].Square()).Square().MulF(100)
	return a.Add(b)
}

var _ = Describe("Minimize", func() {
	var (
		ctx  context.Context
		opts optim.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = optim.DefaultOptions()
	})

	It("minimizes the L2 norm of a simple state", func() {
		f := autodiff.EvalF(sumOfSquares)
		g := autodiff.GradF(sumOfSquares)
		opts.MaxIterations = 200

		res, err := optim.Minimize(ctx, f, g, []float64{100, 25, 0}, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.GradNorm).To(BeNumerically("<", opts.EpsGrad))
		Expect(res.Energy).To(BeNumerically("<", 1e-6))
		Expect(res.Iterations).To(BeNumerically(">", 0))
	})

	It("returns zero iterations and the unchanged point when already converged", func() {
		f := autodiff.EvalF(sumOfSquares)
		g := autodiff.GradF(sumOfSquares)
		x0 := []float64{1e-5, -1e-5}

		res, err := optim.Minimize(ctx, f, g, x0, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(Equal(0))
		Expect(res.X).To(Equal(x0))
		Expect(res.Energy).To(BeNumerically("~", 2e-10, 1e-15))
	})

	It("does not modify the starting point", func() {
		x0 := []float64{3, 4}
		_, err := optim.Minimize(ctx, autodiff.EvalF(sumOfSquares), autodiff.GradF(sumOfSquares), x0, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(x0).To(Equal([]float64{3, 4}))
	})

	It("strictly decreases the energy on every accepted step", func() {
		f := autodiff.EvalF(rosenbrock)
		g := autodiff.GradF(rosenbrock)
		opts.MaxIterations = 1

		x := []float64{-1.2, 1}
		prev := f(x)
		for i := 0; i < 100; i++ {
			res, err := optim.Minimize(ctx, f, g, x, opts)
			Expect(err).NotTo(HaveOccurred())
			if res.Iterations == 0 {
				break
			}
			Expect(res.Energy).To(BeNumerically("<", prev))
			prev, x = res.Energy, res.X
		}
	})

	It("handles an empty variable vector", func() {
		f := func([]float64) float64 { return 7 }
		g := func([]float64) []float64 { return nil }

		res, err := optim.Minimize(ctx, f, g, nil, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(Equal(0))
		Expect(res.Energy).To(Equal(7.0))
	})

	Context("non-finite values", func() {
		It("fails on a non-finite starting energy", func() {
			f := func([]float64) float64 { return math.NaN() }
			g := func(x []float64) []float64 { return []float64{1} }

			_, err := optim.Minimize(ctx, f, g, []float64{1}, opts)
			var de *optim.NumericDivergenceError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.What).To(Equal("energy"))
			Expect(err).To(MatchError(optim.ErrNumericDivergence))
		})

		It("fails on a non-finite gradient and keeps the last valid point", func() {
			f := func(x []float64) float64 { return x[0] * x[0] }
			g := func(x []float64) []float64 {
				if x[0] < 5 {
					return []float64{math.Inf(1)}
				}
				return []float64{2 * x[0]}
			}

			res, err := optim.Minimize(ctx, f, g, []float64{10}, opts)
			Expect(err).To(MatchError(optim.ErrNumericDivergence))
			var de *optim.NumericDivergenceError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.X).To(Equal([]float64{10}))
			Expect(res.X).To(Equal([]float64{10}))
		})
	})

	It("reports a stall when no step decreases the energy", func() {
		// the gradient points uphill, so backtracking never succeeds
		f := func(x []float64) float64 { return x[0] }
		g := func([]float64) []float64 { return []float64{-1} }
		opts.MaxHalvings = 5

		res, err := optim.Minimize(ctx, f, g, []float64{0}, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stalled).To(BeTrue())
		Expect(res.Iterations).To(Equal(0))
	})

	// A long first step lands past the hinge at 5, where energy and gradient
	// are both zero.
	It("settles on the edge of a one-sided penalty with the default step", func() {
		hinge := func(xs []*autodiff.Value) *autodiff.Value { return xs[0].AddF(-5).ReLU().Square() }
		opts.MaxIterations = 100

		res, err := optim.Minimize(ctx, autodiff.EvalF(hinge), autodiff.GradF(hinge), []float64{10}, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged(opts.EpsGrad)).To(BeTrue())
		Expect(res.X[0]).To(BeNumerically("~", 5, 1e-2))
	})

	It("stops between iterations when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := optim.Minimize(cctx, autodiff.EvalF(sumOfSquares), autodiff.GradF(sumOfSquares), []float64{1, 2}, opts)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.X).To(Equal([]float64{1, 2}))
	})

	Describe("WarmStart", func() {
		square := func(xs []*autodiff.Value) *autodiff.Value { return xs[0].Square() }

		It("tries the given step first", func() {
			opts.MaxIterations = 1
			opts.InitialStep = 1.0
			m := optim.New(opts)

			res, err := m.WarmStart(ctx, autodiff.EvalF(square), autodiff.GradF(square), []float64{1}, 0.25)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X[0]).To(BeNumerically("~", 0.5, 1e-12))
			Expect(res.Step).To(Equal(0.25))

			res, err = m.Minimize(ctx, autodiff.EvalF(square), autodiff.GradF(square), []float64{1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(res.Step).To(Equal(0.5))
		})

		It("clamps steps outside (0, InitialStep]", func() {
			opts.MaxIterations = 1
			opts.InitialStep = 1.0
			m := optim.New(opts)
			for _, s := range []float64{0, -3, 8} {
				res, err := m.WarmStart(ctx, autodiff.EvalF(square), autodiff.GradF(square), []float64{1}, s)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Step).To(Equal(0.5))
			}
		})
	})

	DescribeTable("rejects invalid options",
		func(mutate func(*optim.Options)) {
			o := optim.DefaultOptions()
			mutate(&o)
			Expect(o.Validate()).To(MatchError(optim.ErrInvalidOptions))
		},
		Entry("zero eps", func(o *optim.Options) { o.EpsGrad = 0 }),
		Entry("armijo of one", func(o *optim.Options) { o.Armijo = 1 }),
		Entry("negative step", func(o *optim.Options) { o.InitialStep = -1 }),
		Entry("negative halvings", func(o *optim.Options) { o.MaxHalvings = -1 }),
		Entry("zero iterations", func(o *optim.Options) { o.MaxIterations = 0 }),
	)
})
