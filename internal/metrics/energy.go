package metrics

import (
	"math"

	"github.com/san-kum/layoutopt/internal/layout"
)

type FinalEnergy struct {
	name    string
	last    float64
	samples int
}

func NewFinalEnergy() *FinalEnergy {
	return &FinalEnergy{name: "final_energy"}
}

func (e *FinalEnergy) Name() string { return e.name }

func (e *FinalEnergy) Observe(s layout.Snapshot) {
	e.last = s.Energy
	e.samples++
}

func (e *FinalEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.last
}

func (e *FinalEnergy) Reset() {
	e.last = 0
	e.samples = 0
}

// EnergyDrop is the relative decrease from the first observed energy.
type EnergyDrop struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewEnergyDrop() *EnergyDrop {
	return &EnergyDrop{name: "energy_drop"}
}

func (e *EnergyDrop) Name() string { return e.name }

func (e *EnergyDrop) Observe(s layout.Snapshot) {
	if e.samples == 0 {
		e.initial = s.Energy
	}
	e.current = s.Energy
	e.samples++
}

func (e *EnergyDrop) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return (e.initial - e.current) / math.Abs(e.initial)
}

func (e *EnergyDrop) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}

type GradNorm struct {
	name string
	last float64
}

func NewGradNorm() *GradNorm {
	return &GradNorm{name: "grad_norm"}
}

func (g *GradNorm) Name() string              { return g.name }
func (g *GradNorm) Observe(s layout.Snapshot) { g.last = s.GradNorm }
func (g *GradNorm) Value() float64            { return g.last }
func (g *GradNorm) Reset()                    { g.last = 0 }
