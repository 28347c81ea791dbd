package metrics

import (
	"sort"

	"github.com/san-kum/layoutopt/internal/layout"
)

// Metric accumulates a scalar over the snapshots of a run.
type Metric interface {
	Name() string
	Observe(s layout.Snapshot)
	Value() float64
	Reset()
}

// Collector fans step snapshots out to a set of metrics. It implements
// layout.Observer.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

// Default returns the metrics reported by the command line.
func Default() *Collector {
	return NewCollector(NewFinalEnergy(), NewEnergyDrop(), NewGradNorm(), NewMonotonicity())
}

func (c *Collector) Add(m Metric) { c.metrics = append(c.metrics, m) }

func (c *Collector) OnStep(s layout.Snapshot) {
	for _, m := range c.metrics {
		m.Observe(s)
	}
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}

func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns metric names in sorted order.
func (c *Collector) Names() []string {
	names := make([]string, len(c.metrics))
	for i, m := range c.metrics {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}
