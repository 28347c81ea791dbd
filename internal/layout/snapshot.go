package layout

import "github.com/san-kum/layoutopt/internal/shape"

// ShapeSnapshot is a shape with every field resolved to a number.
type ShapeSnapshot struct {
	Kind   shape.Kind         `json:"kind" yaml:"kind"`
	Name   string             `json:"name" yaml:"name"`
	Fields map[string]float64 `json:"fields" yaml:"fields"`
	Props  map[string]string  `json:"props,omitempty" yaml:"props,omitempty"`
}

// Snapshot is what a caller forwards or renders after a step.
type Snapshot struct {
	ID         string          `json:"id" yaml:"id"`
	Shapes     []ShapeSnapshot `json:"shapes" yaml:"shapes"`
	Energy     float64         `json:"energy" yaml:"energy"`
	GradNorm   float64         `json:"gradNorm" yaml:"grad_norm"`
	Steps      int             `json:"steps" yaml:"steps"`
	Iterations int             `json:"iterations" yaml:"iterations"`
	Status     Status          `json:"status" yaml:"status"`
	Converged  bool            `json:"converged" yaml:"converged"`
}

func (st *State) Snapshot() Snapshot {
	shapes := make([]ShapeSnapshot, len(st.Shapes))
	for i, s := range st.Shapes {
		shapes[i] = ShapeSnapshot{
			Kind:   s.Kind,
			Name:   s.Name,
			Fields: s.Resolved(st.Varying),
			Props:  s.Props,
		}
	}
	return Snapshot{
		ID:         st.ID,
		Shapes:     shapes,
		Energy:     st.Energy,
		GradNorm:   st.GradNorm,
		Steps:      st.Steps,
		Iterations: st.Iterations,
		Status:     st.Status,
		Converged:  st.Status == Converged,
	}
}

// Shape returns the resolved shape called name.
func (s Snapshot) Shape(name string) (ShapeSnapshot, bool) {
	for _, sh := range s.Shapes {
		if sh.Name == name {
			return sh, true
		}
	}
	return ShapeSnapshot{}, false
}
