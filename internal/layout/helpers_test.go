package layout_test

import (
	"github.com/san-kum/layoutopt/internal/layout"
)

func fixed(v float64) layout.FieldDesc { return layout.FieldDesc{Value: &v} }

var varying = layout.FieldDesc{Varying: true}

// circle declares a circle with a varying center and a fixed radius.
func circle(name string, r float64) layout.ShapeDesc {
	return layout.ShapeDesc{
		Kind: "Circle",
		Name: name,
		Fields: map[string]layout.FieldDesc{
			"x": varying,
			"y": varying,
			"r": fixed(r),
		},
	}
}

func term(name string, args ...string) layout.TermDesc {
	return layout.TermDesc{Name: name, Args: args}
}

// containsPair is a big circle A that must contain a small circle B, starting
// far apart.
func containsPair() *layout.Description {
	return &layout.Description{
		Shapes:        []layout.ShapeDesc{circle("A", 10), circle("B", 5)},
		VaryingValues: []float64{0, 0, 60, 40},
		Constraints:   []layout.TermDesc{term("contains", "A", "B")},
	}
}

// mutualContainment can never be satisfied: each circle must contain the
// other.
func mutualContainment() *layout.Description {
	return &layout.Description{
		Shapes:        []layout.ShapeDesc{circle("A", 10), circle("B", 5)},
		VaryingValues: []float64{0, 0, 50, 0},
		Constraints: []layout.TermDesc{
			term("contains", "A", "B"),
			term("contains", "B", "A"),
		},
	}
}
