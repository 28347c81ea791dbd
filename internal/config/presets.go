package config

import (
	"sort"

	"github.com/san-kum/layoutopt/internal/optim"
)

var Presets = map[string]*Config{
	"fast": {
		Optim: optim.Options{
			EpsGrad: 1e-2, Armijo: 1e-4, InitialStep: 0.2, MaxHalvings: 20, MaxIterations: 50,
		},
		MaxSteps: 100, Parallel: true, Starts: 1,
	},
	"precise": {
		Optim: optim.Options{
			EpsGrad: 1e-6, Armijo: 1e-4, InitialStep: 0.2, MaxHalvings: 60, MaxIterations: 100,
		},
		MaxSteps: 5000, Starts: 4,
	},
	"interactive": {
		Optim: optim.Options{
			EpsGrad: 1e-3, Armijo: 1e-4, InitialStep: 0.1, MaxHalvings: 40, MaxIterations: 1,
		},
		MaxSteps: 10000, Starts: 1,
		Live: LiveConfig{IntervalMS: 16, Theme: "default"},
	},
}

// GetPreset returns a copy of the named preset filled in over the defaults,
// or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Optim = p.Optim
	cfg.MaxSteps = p.MaxSteps
	cfg.Parallel = p.Parallel
	cfg.Starts = p.Starts
	if p.Live.IntervalMS > 0 {
		cfg.Live = p.Live
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
