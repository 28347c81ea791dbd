package metrics

import (
	"github.com/san-kum/layoutopt/internal/layout"
)

// Point is one row of a Trace.
type Point struct {
	Step       int
	Iterations int
	Energy     float64
	GradNorm   float64
	Status     layout.Status
}

// Trace records the energy and gradient norm after every step.
type Trace struct {
	Points []Point
	limit  int
}

// NewTrace keeps at most limit points, dropping the oldest; limit <= 0
// keeps everything.
func NewTrace(limit int) *Trace {
	return &Trace{limit: limit}
}

func (t *Trace) OnStep(s layout.Snapshot) {
	t.Points = append(t.Points, Point{
		Step:       s.Steps,
		Iterations: s.Iterations,
		Energy:     s.Energy,
		GradNorm:   s.GradNorm,
		Status:     s.Status,
	})
	if t.limit > 0 && len(t.Points) > t.limit {
		t.Points = t.Points[len(t.Points)-t.limit:]
	}
}

func (t *Trace) Energies() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Energy
	}
	return out
}

func (t *Trace) GradNorms() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.GradNorm
	}
	return out
}

func (t *Trace) Reset() { t.Points = t.Points[:0] }
