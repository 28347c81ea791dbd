package metrics

import (
	"github.com/san-kum/layoutopt/internal/layout"
)

// Monotonicity is the fraction of steps that did not raise the energy.
type Monotonicity struct {
	name       string
	prev       float64
	violations int
	samples    int
}

func NewMonotonicity() *Monotonicity {
	return &Monotonicity{name: "monotonicity"}
}

func (m *Monotonicity) Name() string {
	return m.name
}

func (m *Monotonicity) Observe(s layout.Snapshot) {
	if m.samples > 0 && s.Energy > m.prev {
		m.violations++
	}
	m.prev = s.Energy
	m.samples++
}

func (m *Monotonicity) Value() float64 {
	if m.samples < 2 {
		return 1.0
	}
	return 1.0 - float64(m.violations)/float64(m.samples-1)
}

func (m *Monotonicity) Reset() {
	m.prev = 0
	m.violations = 0
	m.samples = 0
}
