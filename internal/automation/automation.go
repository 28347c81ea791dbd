// Package automation runs scripted batches of layout problems: scenarios
// read from YAML, sweeps over a term parameter, and perturbed trials that
// measure how often a problem converges from nearby starts.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/layoutopt/internal/config"
	"github.com/san-kum/layoutopt/internal/layout"
)

// Scenario is a scripted sequence of optimizations.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep optimizes one description file. Zero fields fall back to
// the base configuration.
type ScenarioStep struct {
	File     string `yaml:"file"`
	Preset   string `yaml:"preset"`
	MaxSteps int    `yaml:"max_steps"`
	Starts   int    `yaml:"starts"`
	Seed     int64  `yaml:"seed"`
	SaveAs   string `yaml:"save_as"`
}

// LoadScenario reads a scenario. Step files are resolved relative to the
// scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", path)
	}
	dir := filepath.Dir(path)
	for i, step := range scenario.Steps {
		if step.File == "" {
			return nil, fmt.Errorf("scenario %s: step %d has no file", path, i+1)
		}
		if !filepath.IsAbs(step.File) {
			scenario.Steps[i].File = filepath.Join(dir, step.File)
		}
	}
	return &scenario, nil
}

// StepResult is the outcome of one scenario step. State is nil when the
// step failed before optimizing.
type StepResult struct {
	Step  ScenarioStep
	State *layout.State
	Err   error
}

// resolve layers a step over base.
func (s ScenarioStep) resolve(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
		cfg.Optim, cfg.MaxSteps, cfg.Parallel, cfg.Starts = p.Optim, p.MaxSteps, p.Parallel, p.Starts
	}
	if s.MaxSteps > 0 {
		cfg.MaxSteps = s.MaxSteps
	}
	if s.Starts > 0 {
		cfg.Starts = s.Starts
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return &cfg, cfg.Validate()
}

// RunScenario executes every step in order. A failing step is recorded and
// the scenario moves on; only cancellation stops it early.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config) ([]StepResult, error) {
	logger := layout.LoggerFrom(ctx)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("scenario step", "n", i+1, "of", len(scenario.Steps), "file", step.File)

		st, err := runStep(ctx, step, base)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return results, err
		}
		if err != nil {
			logger.Warn("scenario step failed", "n", i+1, "err", err)
		}
		results = append(results, StepResult{Step: step, State: st, Err: err})
	}
	return results, nil
}

func runStep(ctx context.Context, step ScenarioStep, base *config.Config) (*layout.State, error) {
	cfg, err := step.resolve(base)
	if err != nil {
		return nil, err
	}
	desc, err := layout.DecodeFile(step.File)
	if err != nil {
		return nil, err
	}
	st, err := layout.BestOfN(ctx, desc, cfg.LayoutOptions(), cfg.Starts, cfg.Seed)
	if err != nil && !layout.IsWarning(err) {
		return st, err
	}
	return st, nil
}

// ParameterSweep varies one parameter of one term across [Min, Max].
type ParameterSweep struct {
	Description *layout.Description
	Options     layout.Options
	// Term indexes Objectives then Constraints, in that order.
	Term     int
	Param    int
	Min, Max float64
	NumSteps int
}

// SweepResult is the end point of one sweep value.
type SweepResult struct {
	ParamValue float64
	Energy     float64
	GradNorm   float64
	Steps      int
	Status     layout.Status
	Varying    []float64
}

// RunSweep optimizes the description once per parameter value, always from
// the same start.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	if sweep.Param < 0 {
		return nil, fmt.Errorf("sweep param index %d out of range", sweep.Param)
	}
	nobj := len(sweep.Description.Objectives)
	if sweep.Term < 0 || sweep.Term >= nobj+len(sweep.Description.Constraints) {
		return nil, fmt.Errorf("sweep term index %d out of range", sweep.Term)
	}

	logger := layout.LoggerFrom(ctx)
	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		value := sweep.Min + float64(i)*paramStep
		desc := withParam(sweep.Description, sweep.Term, sweep.Param, value)

		st, err := layout.New(desc, sweep.Options)
		if err != nil {
			return results, err
		}
		if _, err := layout.StepUntilConvergence(ctx, st); err != nil && !layout.IsWarning(err) {
			return results, err
		}

		results = append(results, SweepResult{
			ParamValue: value,
			Energy:     st.Energy,
			GradNorm:   st.GradNorm,
			Steps:      st.Steps,
			Status:     st.Status,
			Varying:    st.Varying,
		})
		logger.Debug("sweep", "n", i+1, "of", sweep.NumSteps, "value", value, "energy", st.Energy)
	}
	return results, nil
}

// withParam copies desc with params[param] of the chosen term set to v,
// padding earlier params with zeros.
func withParam(desc *layout.Description, term, param int, v float64) *layout.Description {
	d := *desc
	d.Objectives = append([]layout.TermDesc(nil), desc.Objectives...)
	d.Constraints = append([]layout.TermDesc(nil), desc.Constraints...)

	var td *layout.TermDesc
	if term < len(d.Objectives) {
		td = &d.Objectives[term]
	} else {
		td = &d.Constraints[term-len(d.Objectives)]
	}
	params := make([]float64, max(len(td.Params), param+1))
	copy(params, td.Params)
	params[param] = v
	td.Params = params
	return &d
}

// MonteCarloConfig perturbs the given varying values uniformly by up to
// Perturbation in each coordinate.
type MonteCarloConfig struct {
	Description  *layout.Description
	Options      layout.Options
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID   int
	Start     []float64
	Final     []float64
	Energy    float64
	Converged bool
	Err       error
}

// RunMonteCarlo runs NumTrials perturbed starts to completion.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	logger := layout.LoggerFrom(ctx)
	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	rng := rand.New(rand.NewSource(cfg.Seed))

	for trial := 0; trial < cfg.NumTrials; trial++ {
		d := *cfg.Description
		d.VaryingValues = make([]float64, len(cfg.Description.VaryingValues))
		for i, v := range cfg.Description.VaryingValues {
			d.VaryingValues[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}

		st, err := layout.New(&d, cfg.Options)
		if err != nil {
			return results, err
		}
		_, err = layout.StepUntilConvergence(ctx, st)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return results, err
		}
		r := MonteCarloResult{
			TrialID:   trial,
			Start:     d.VaryingValues,
			Final:     st.Varying,
			Energy:    st.Energy,
			Converged: st.Status == layout.Converged,
		}
		if err != nil && !layout.IsWarning(err) {
			r.Err = err
		}
		results = append(results, r)

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo", "done", trial+1, "of", cfg.NumTrials)
		}
	}
	return results, nil
}

// MonteCarloStats counts trials that converged and those that did not.
func MonteCarloStats(results []MonteCarloResult) (converged int, failed int) {
	for _, r := range results {
		if r.Converged {
			converged++
		} else {
			failed++
		}
	}
	return
}
