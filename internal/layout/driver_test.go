package layout_test

import (
	"context"
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/layoutopt/internal/layout"
)

func centerDistance(s layout.Snapshot, a, b string) float64 {
	sa, _ := s.Shape(a)
	sb, _ := s.Shape(b)
	return math.Hypot(sa.Fields["x"]-sb.Fields["x"], sa.Fields["y"]-sb.Fields["y"])
}

var _ = Describe("StepUntilConvergence", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("moves a small circle inside a big one", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Status).To(Equal(layout.Converged))
		Expect(st.GradNorm).To(BeNumerically("<", st.Options().Optim.EpsGrad))

		snap := st.Snapshot()
		Expect(snap.Converged).To(BeTrue())
		Expect(centerDistance(snap, "A", "B")).To(BeNumerically("~", 5, 1e-2))
		for _, tv := range st.EnergyFunc().Breakdown(st.Varying) {
			Expect(tv.Raw).To(BeNumerically("<=", 1e-2))
		}
	})

	DescribeTable("stops on the containment boundary rather than inside it",
		func(step float64) {
			opts := layout.DefaultOptions()
			opts.Optim.InitialStep = step
			st, err := layout.New(containsPair(), opts)
			Expect(err).NotTo(HaveOccurred())

			st, err = layout.StepUntilConvergence(ctx, st)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Status).To(Equal(layout.Converged))
			Expect(centerDistance(st.Snapshot(), "A", "B")).To(BeNumerically("~", 5, 1e-2))
		},
		Entry("default step", layout.DefaultOptions().Optim.InitialStep),
		Entry("half the default", layout.DefaultOptions().Optim.InitialStep/2),
	)

	It("leaves fixed fields untouched", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(err).NotTo(HaveOccurred())

		a, _ := st.Snapshot().Shape("A")
		b, _ := st.Snapshot().Shape("B")
		Expect(a.Fields["r"]).To(Equal(10.0))
		Expect(b.Fields["r"]).To(Equal(5.0))
	})

	It("is idempotent on a converged state", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(err).NotTo(HaveOccurred())

		steps, iters := st.Steps, st.Iterations
		x := append([]float64(nil), st.Varying...)

		again, err := layout.StepUntilConvergence(ctx, st)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Status).To(Equal(layout.Converged))
		Expect(again.Steps).To(Equal(steps))
		Expect(again.Iterations).To(Equal(iters))
		Expect(again.Varying).To(Equal(x))
	})

	It("converges immediately when every constraint already holds", func() {
		desc := containsPair()
		desc.VaryingValues = []float64{0, 0, 1, 1}
		st, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Energy).To(Equal(0.0))

		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Status).To(Equal(layout.Converged))
		Expect(st.Iterations).To(Equal(0))
		Expect(st.Varying).To(Equal([]float64{0, 0, 1, 1}))
	})

	It("stops at the ceiling with a warning on an unsatisfiable set", func() {
		opts := layout.DefaultOptions()
		opts.MaxSteps = 8

		st, err := layout.New(mutualContainment(), opts)
		Expect(err).NotTo(HaveOccurred())

		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(layout.IsWarning(err)).To(BeTrue())
		Expect(err).To(MatchError(layout.ErrDidNotConverge))

		var w *layout.DidNotConvergeWarning
		Expect(errors.As(err, &w)).To(BeTrue())
		Expect(w.Steps).To(Equal(8))

		Expect(st).NotTo(BeNil())
		Expect(st.Status).To(Equal(layout.CeilingReached))
		Expect(st.Steps).To(Equal(8))
		Expect(st.GradNorm).To(BeNumerically(">=", opts.Optim.EpsGrad))
		Expect(st.Energy).To(BeNumerically("<", 55.0*55.0))
	})

	It("keeps an unsatisfiable set stepping until the ceiling", func() {
		opts := layout.DefaultOptions()
		opts.MaxSteps = 3

		st, err := layout.New(mutualContainment(), opts)
		Expect(err).NotTo(HaveOccurred())
		for i := 1; i < opts.MaxSteps; i++ {
			st, err = layout.StepState(ctx, st)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Status).To(Equal(layout.Stepping))
			Expect(st.Steps).To(Equal(i))
		}
		st, err = layout.StepState(ctx, st)
		Expect(err).To(MatchError(layout.ErrDidNotConverge))
		Expect(st.Status).To(Equal(layout.CeilingReached))
	})

	It("reaches the ceiling when every field is fixed and a constraint is violated", func() {
		pinned := func(name string, x, y, r float64) layout.ShapeDesc {
			return layout.ShapeDesc{
				Kind: "Circle",
				Name: name,
				Fields: map[string]layout.FieldDesc{
					"x": fixed(x),
					"y": fixed(y),
					"r": fixed(r),
				},
			}
		}
		desc := &layout.Description{
			Shapes: []layout.ShapeDesc{pinned("A", 0, 0, 10), pinned("B", 100, 0, 5)},
			Constraints: []layout.TermDesc{
				term("contains", "A", "B"),
				term("contains", "B", "A"),
			},
		}
		opts := layout.DefaultOptions()
		opts.MaxSteps = 5

		st, err := layout.New(desc, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Varying).To(BeEmpty())
		Expect(st.Energy).To(BeNumerically(">", 0))

		st, err = layout.StepUntilConvergence(ctx, st)
		Expect(layout.IsWarning(err)).To(BeTrue())
		var w *layout.DidNotConvergeWarning
		Expect(errors.As(err, &w)).To(BeTrue())
		Expect(st.Status).To(Equal(layout.CeilingReached))
		Expect(st.Steps).To(Equal(5))
		Expect(st.Snapshot().Converged).To(BeFalse())
		Expect(w.Energy).To(Equal(st.Energy))
	})

	It("keeps returning the warning from a ceiling state without stepping", func() {
		opts := layout.DefaultOptions()
		opts.MaxSteps = 2
		st, err := layout.New(mutualContainment(), opts)
		Expect(err).NotTo(HaveOccurred())
		st, _ = layout.StepUntilConvergence(ctx, st)

		_, err = layout.StepState(ctx, st)
		Expect(layout.IsWarning(err)).To(BeTrue())
		Expect(st.Steps).To(Equal(2))
	})

	It("returns the state reached so far when cancelled", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		st, err = layout.StepUntilConvergence(cctx, st)
		Expect(err).To(MatchError(context.Canceled))
		Expect(st.Steps).To(Equal(0))
		Expect(st.Status).To(Equal(layout.Uninitialized))
	})

	It("produces the same layout with parallel gradients", func() {
		desc := containsPair()
		desc.Shapes = append(desc.Shapes, circle("C", 3))
		desc.VaryingValues = append(desc.VaryingValues, -20, 30)
		desc.Objectives = []layout.TermDesc{term("near", "A", "C"), term("repel", "B", "C")}

		seq := layout.DefaultOptions()
		seq.MaxSteps = 3
		par := seq
		par.Parallel = true
		par.Workers = 3

		a, err := layout.New(desc, seq)
		Expect(err).NotTo(HaveOccurred())
		b, err := layout.New(desc, par)
		Expect(err).NotTo(HaveOccurred())

		a, _ = layout.StepUntilConvergence(ctx, a)
		b, _ = layout.StepUntilConvergence(ctx, b)
		for i := range a.Varying {
			Expect(b.Varying[i]).To(BeNumerically("~", a.Varying[i], 1e-6))
		}
	})
})

var _ = Describe("StepState", func() {
	It("decreases energy monotonically across steps", func() {
		opts := layout.DefaultOptions()
		opts.Optim.MaxIterations = 1
		st, err := layout.New(containsPair(), opts)
		Expect(err).NotTo(HaveOccurred())

		prev, iters := st.Energy, st.Iterations
		for i := 0; i < 10 && !st.Status.Done(); i++ {
			st, err = layout.StepState(context.Background(), st)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Status.Done() || st.Status == layout.Stepping).To(BeTrue())
			if st.Iterations > iters {
				Expect(st.Energy).To(BeNumerically("<", prev))
			}
			prev, iters = st.Energy, st.Iterations
		}
	})

	It("notifies observers after every step", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		var seen []layout.Snapshot
		st.AddObserver(layout.ObserverFunc(func(s layout.Snapshot) { seen = append(seen, s) }))

		st, err = layout.StepUntilConvergence(context.Background(), st)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(st.Steps))
		Expect(seen[len(seen)-1].Converged).To(BeTrue())
		Expect(seen[0].ID).To(Equal(st.ID))
	})
})

var _ = Describe("Resample", func() {
	It("draws varying values inside their ranges", func() {
		desc := decode(vennJSON)
		st, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		fresh, err := layout.Resample(st, rand.New(rand.NewSource(7)))
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh.ID).NotTo(Equal(st.ID))
		Expect(fresh.Status).To(Equal(layout.Uninitialized))
		Expect(fresh.Varying).To(HaveLen(6))
		Expect(fresh.Varying[3]).To(And(BeNumerically(">=", 5), BeNumerically("<=", 30)))
		for _, i := range []int{0, 1, 2, 4, 5} {
			Expect(fresh.Varying[i]).To(And(BeNumerically(">=", -200), BeNumerically("<=", 200)))
		}
	})

	It("is deterministic for a seed", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		a, err := layout.Resample(st, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		b, err := layout.Resample(st, rand.New(rand.NewSource(42)))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Varying).To(Equal(b.Varying))
	})

	It("keeps the original description intact", func() {
		desc := containsPair()
		st, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		_, err = layout.Resample(st, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(desc.VaryingValues).To(Equal([]float64{0, 0, 60, 40}))
	})
})

var _ = Describe("BestOfN", func() {
	It("returns a converged layout", func() {
		st, err := layout.BestOfN(context.Background(), containsPair(), layout.DefaultOptions(), 4, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Status).To(Equal(layout.Converged))
		Expect(centerDistance(st.Snapshot(), "A", "B")).To(BeNumerically("~", 5, 1e-2))
	})

	It("surfaces construction errors", func() {
		desc := containsPair()
		desc.Shapes[0].Kind = "Blob"
		_, err := layout.BestOfN(context.Background(), desc, layout.DefaultOptions(), 3, 1)
		Expect(err).To(MatchError(layout.ErrStateDecode))
	})
})

var _ = Describe("Energy", func() {
	It("is zero with no terms", func() {
		desc := containsPair()
		desc.Constraints = nil
		st, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Energy).To(Equal(0.0))
		Expect(st.EnergyFunc().Gradient(st.Varying)).To(Equal([]float64{0, 0, 0, 0}))
	})

	It("applies the squared hinge only to constraints", func() {
		st, err := layout.New(decode(vennJSON), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		bd := st.EnergyFunc().Breakdown(st.Varying)
		Expect(bd).To(HaveLen(2))
		Expect(bd[0].Energy).To(Equal(bd[0].Raw))
		Expect(bd[1].Satisfied()).To(Equal(bd[1].Raw <= 0))
		Expect(bd[1].Energy).To(BeNumerically("~", math.Pow(math.Max(bd[1].Raw, 0), 2), 1e-12))
		Expect(st.Energy).To(BeNumerically("~", bd[0].Energy+bd[1].Energy, 1e-9))
	})

	It("computes the same gradient in parallel", func() {
		st, err := layout.New(decode(vennJSON), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		seq := st.EnergyFunc().Gradient(st.Varying)
		par, err := st.EnergyFunc().ParallelGradient(context.Background(), st.Varying, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(par).To(HaveLen(len(seq)))
		for i := range seq {
			Expect(par[i]).To(BeNumerically("~", seq[i], 1e-9))
		}
	})
})
