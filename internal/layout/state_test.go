package layout_test

import (
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/shape"
)

const vennJSON = `{
  "shapes": [
    {"kind": "Circle", "name": "A", "fields": {"x": {"varying": true}, "y": {"varying": true}, "r": {"value": 40}}},
    {"kind": "Circle", "name": "B", "fields": {"x": {"varying": true}, "y": {"value": 0}, "r": {"varying": true, "range": [5, 30]}}},
    {"kind": "Label", "name": "L", "fields": {"x": {"varying": true}, "y": {"varying": true}, "w": {"value": 12}, "h": {"value": 6}},
     "props": {"text": "B"}}
  ],
  "varyingValues": [1, 2, 3, 4, 5, 6],
  "objectives": [{"name": "centerLabel", "args": ["B", "L"]}],
  "constraints": [{"name": "contains", "args": ["A", "B"], "params": [2]}]
}`

func decode(s string) *layout.Description {
	desc, err := layout.Decode(strings.NewReader(s), layout.FormatJSON)
	Expect(err).NotTo(HaveOccurred())
	return desc
}

var _ = Describe("New", func() {
	It("assigns varying indices in shape order, then field order", func() {
		st, err := layout.New(decode(vennJSON), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		Expect(st.Varying).To(Equal([]float64{1, 2, 3, 4, 5, 6}))
		Expect(st.Shapes[0].Fields["x"]).To(Equal(shape.Varying(0)))
		Expect(st.Shapes[0].Fields["y"]).To(Equal(shape.Varying(1)))
		Expect(st.Shapes[0].Fields["r"]).To(Equal(shape.Fixed(40)))
		Expect(st.Shapes[1].Fields["x"]).To(Equal(shape.Varying(2)))
		Expect(st.Shapes[1].Fields["r"]).To(Equal(shape.Varying(3)))
		Expect(st.Shapes[2].Fields["x"]).To(Equal(shape.Varying(4)))
		Expect(st.Shapes[2].Fields["y"]).To(Equal(shape.Varying(5)))
	})

	It("orders objectives before constraints", func() {
		st, err := layout.New(decode(vennJSON), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		Expect(st.Terms).To(HaveLen(2))
		Expect(st.Terms[0].Name).To(Equal("centerLabel"))
		Expect(st.Terms[0].Kind).To(Equal(constraint.Objective))
		Expect(st.Terms[1].Params).To(Equal([]float64{2}))
	})

	It("starts uninitialized with energy and gradient norm computed", func() {
		st, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		Expect(st.ID).NotTo(BeEmpty())
		Expect(st.Status).To(Equal(layout.Uninitialized))
		d := math.Hypot(60, 40)
		Expect(st.Energy).To(BeNumerically("~", (d-5)*(d-5), 1e-9))
		Expect(st.GradNorm).To(BeNumerically(">", 0))
	})

	It("gives two distinct states distinct ids", func() {
		a, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		b, err := layout.New(containsPair(), layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	DescribeTable("rejects malformed descriptions with StateDecodeError",
		func(mutate func(*layout.Description)) {
			desc := containsPair()
			mutate(desc)
			_, err := layout.New(desc, layout.DefaultOptions())
			Expect(err).To(MatchError(layout.ErrStateDecode))

			var de *layout.StateDecodeError
			Expect(errors.As(err, &de)).To(BeTrue())
		},
		Entry("unknown shape variant", func(d *layout.Description) { d.Shapes[0].Kind = "Hexagon" }),
		Entry("missing required field", func(d *layout.Description) { delete(d.Shapes[1].Fields, "r") }),
		Entry("field foreign to the kind", func(d *layout.Description) { d.Shapes[0].Fields["side"] = fixed(3) }),
		Entry("too few varying values", func(d *layout.Description) { d.VaryingValues = d.VaryingValues[:3] }),
		Entry("too many varying values", func(d *layout.Description) { d.VaryingValues = append(d.VaryingValues, 1) }),
		Entry("field both fixed and varying", func(d *layout.Description) {
			v := 3.0
			d.Shapes[0].Fields["r"] = layout.FieldDesc{Value: &v, Varying: true}
		}),
		Entry("field with neither value nor varying", func(d *layout.Description) {
			d.Shapes[0].Fields["r"] = layout.FieldDesc{}
		}),
		Entry("inverted range", func(d *layout.Description) {
			d.Shapes[0].Fields["x"] = layout.FieldDesc{Varying: true, Range: []float64{5, 1}}
		}),
		Entry("non-finite varying value", func(d *layout.Description) { d.VaryingValues[0] = math.Inf(1) }),
		Entry("duplicate shape name", func(d *layout.Description) { d.Shapes[1].Name = "A" }),
		Entry("term naming an unknown shape", func(d *layout.Description) { d.Constraints[0].Args[1] = "Z" }),
		Entry("objective listed as a constraint", func(d *layout.Description) {
			d.Constraints = append(d.Constraints, term("near", "A", "B"))
		}),
	)

	It("rejects unknown terms with ErrUnknownTerm", func() {
		desc := containsPair()
		desc.Constraints = append(desc.Constraints, term("overlaps", "A", "B"))
		_, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).To(MatchError(constraint.ErrUnknownTerm))
	})

	It("rejects unsupported shape pairs before any step", func() {
		desc := containsPair()
		desc.Shapes = append(desc.Shapes, layout.ShapeDesc{
			Kind: "Line", Name: "E",
			Fields: map[string]layout.FieldDesc{
				"startX": fixed(0), "startY": fixed(0), "endX": fixed(10), "endY": fixed(10),
			},
		})
		desc.Constraints = append(desc.Constraints, term("contains", "E", "A"))

		_, err := layout.New(desc, layout.DefaultOptions())
		var pe *constraint.UnsupportedShapePairError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Term).To(Equal("contains"))
		Expect(err).To(MatchError(constraint.ErrUnsupportedPair))
	})

	It("rejects a term with the wrong number of shapes", func() {
		desc := containsPair()
		desc.Constraints[0].Args = []string{"A"}
		_, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).To(MatchError(constraint.ErrArity))
	})

	It("rejects invalid options", func() {
		opts := layout.DefaultOptions()
		opts.MaxSteps = 0
		_, err := layout.New(containsPair(), opts)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Decode", func() {
	It("rejects unknown JSON fields", func() {
		_, err := layout.Decode(strings.NewReader(`{"shapes": [], "varyingValues": [], "colour": 1}`), layout.FormatJSON)
		Expect(err).To(MatchError(layout.ErrStateDecode))
	})

	It("rejects malformed JSON", func() {
		_, err := layout.Decode(strings.NewReader(`{"shapes": [`), layout.FormatJSON)
		Expect(err).To(MatchError(layout.ErrStateDecode))
	})

	It("reads the same description from YAML", func() {
		yml := `
shapes:
  - kind: Circle
    name: A
    fields:
      x: {varying: true}
      y: {varying: true}
      r: {value: 10}
varyingValues: [3, 4]
`
		desc, err := layout.Decode(strings.NewReader(yml), layout.FormatYAML)
		Expect(err).NotTo(HaveOccurred())
		st, err := layout.New(desc, layout.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Varying).To(Equal([]float64{3, 4}))
	})

	It("round-trips through Encode", func() {
		desc := decode(vennJSON)
		var sb strings.Builder
		Expect(desc.Encode(&sb, layout.FormatYAML)).To(Succeed())

		back, err := layout.Decode(strings.NewReader(sb.String()), layout.FormatYAML)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(desc))
	})

	It("picks the format from the file extension", func() {
		Expect(layout.FormatFromPath("a/venn.YML")).To(Equal(layout.FormatYAML))
		Expect(layout.FormatFromPath("venn.json")).To(Equal(layout.FormatJSON))
		Expect(layout.FormatFromPath("venn")).To(Equal(layout.FormatJSON))
	})
})

var _ = Describe("Status", func() {
	It("marshals as text", func() {
		b, err := layout.CeilingReached.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("ceiling_reached"))

		var s layout.Status
		Expect(s.UnmarshalText([]byte("converged"))).To(Succeed())
		Expect(s).To(Equal(layout.Converged))
		Expect(s.UnmarshalText([]byte("bogus"))).NotTo(Succeed())
	})

	It("treats only converged and ceiling as terminal", func() {
		Expect(layout.Uninitialized.Done()).To(BeFalse())
		Expect(layout.Stepping.Done()).To(BeFalse())
		Expect(layout.Converged.Done()).To(BeTrue())
		Expect(layout.CeilingReached.Done()).To(BeTrue())
	})
})
