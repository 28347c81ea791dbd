package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/automation"
	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/metrics"
	"github.com/san-kum/layoutopt/internal/storage"
)

var (
	sweepTerm    int
	sweepParam   int
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	trials       int
	perturbation float64
)

func addBatchCommands(root *cobra.Command) {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of layouts",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSolverFlags(scenarioCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [description]",
		Short: "sweep one term parameter and plot the final energy",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addSolverFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepTerm, "term", 0, "term index, objectives first")
	sweepCmd.Flags().IntVar(&sweepParam, "param", 0, "parameter index")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "count", 11, "number of values")

	trialsCmd := &cobra.Command{
		Use:   "trials [description]",
		Short: "count how often perturbed starts converge",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrials,
	}
	addSolverFlags(trialsCmd)
	trialsCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	trialsCmd.Flags().Float64Var(&perturbation, "perturbation", 10, "max offset per varying value")

	root.AddCommand(scenarioCmd, sweepCmd, trialsCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)
	ctx, cancel := commandContext(logger)
	defer cancel()

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	results, err := automation.RunScenario(ctx, sc, cfg)
	if err != nil {
		return err
	}

	store := storage.New(cfg.DataDir)
	if err := store.Init(); err != nil {
		return err
	}
	failed := 0
	for i, r := range results {
		name := r.Step.SaveAs
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(r.Step.File), filepath.Ext(r.Step.File))
		}
		if r.Err != nil {
			failed++
			fmt.Printf("%2d  %-20s %s\n", i+1, name, warnStyle.Render("failed: "+r.Err.Error()))
			continue
		}
		collector := metrics.Default()
		collector.OnStep(r.State.Snapshot())
		runID, err := store.Save(storage.Run{Name: name, Seed: cfg.Seed, State: r.State, Metrics: collector.Values()})
		if err != nil {
			return err
		}
		fmt.Printf("%2d  %-20s %-16s energy %-10.4g %s\n", i+1, name, r.State.Status, r.State.Energy, dimStyle.Render(runID))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(results))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)
	ctx, cancel := commandContext(logger)
	defer cancel()

	desc, err := layout.DecodeFile(args[0])
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Description: desc,
		Options:     cfg.LayoutOptions(),
		Term:        sweepTerm,
		Param:       sweepParam,
		Min:         sweepMin,
		Max:         sweepMax,
		NumSteps:    sweepSteps,
	})
	if err != nil {
		return err
	}

	energies := make([]float64, len(results))
	for i, r := range results {
		energies[i] = r.Energy
		fmt.Printf("%10.4g  %-16s energy %-10.4g steps %d\n", r.ParamValue, r.Status, r.Energy, r.Steps)
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(energies,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(fmt.Sprintf("final energy for param in [%g, %g]", sweepMin, sweepMax)),
	))
	return nil
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)
	ctx, cancel := commandContext(logger)
	defer cancel()

	desc, err := layout.DecodeFile(args[0])
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Description:  desc,
		Options:      cfg.LayoutOptions(),
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Seed,
	})
	if err != nil {
		return err
	}
	converged, failed := automation.MonteCarloStats(results)
	fmt.Printf("%s %s\n", labelStyle.Render("converged"), okStyle.Render(fmt.Sprint(converged)))
	fmt.Printf("%s %s\n", labelStyle.Render("not"), warnStyle.Render(fmt.Sprint(failed)))
	return nil
}
