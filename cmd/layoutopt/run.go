package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/metrics"
	"github.com/san-kum/layoutopt/internal/storage"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Width(12)
	valueStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ec9b0")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dcdcaa")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5c5c5c"))
)

func runLayout(cmd *cobra.Command, args []string) error {
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
	name := runName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	opts := cfg.LayoutOptions()

	collector := metrics.Default()
	trace := metrics.NewTrace(0)

	start := time.Now()
	var st *layout.State
	if cfg.Starts > 1 {
		logger.Info("optimizing", "name", name, "starts", cfg.Starts, "seed", cfg.Seed)
		st, err = layout.BestOfN(ctx, desc, opts, cfg.Starts, cfg.Seed)
		if err != nil {
			return err
		}
		// Only the winner's end point is known.
		collector.OnStep(st.Snapshot())
		trace.OnStep(st.Snapshot())
	} else {
		st, err = layout.New(desc, opts)
		if err != nil {
			return err
		}
		logger.Info("optimizing", "name", name, "shapes", len(st.Shapes), "terms", len(st.Terms), "varying", len(st.Varying))
		st.AddObserver(collector)
		st.AddObserver(trace)
		if _, err := layout.StepUntilConvergence(ctx, st); err != nil && !layout.IsWarning(err) {
			return err
		}
	}
	elapsed := time.Since(start)

	printSummary(st, elapsed)
	printBreakdown(st)

	if noSave {
		return nil
	}
	store := storage.New(cfg.DataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(storage.Run{
		Name:    name,
		Seed:    cfg.Seed,
		State:   st,
		Trace:   trace,
		Metrics: collector.Values(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("\n%s %s\n", labelStyle.Render("run id"), valueStyle.Render(runID))
	fmt.Println("\nmetrics:")
	values := collector.Values()
	for _, n := range collector.Names() {
		fmt.Printf("  %s: %.6g\n", n, values[n])
	}
	return nil
}

// stepLayout advances a description by a fixed number of steps and writes
// it back with the new varying values, so a layout can be stepped across
// invocations.
func stepLayout(cmd *cobra.Command, args []string) error {
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
	st, err := layout.New(desc, cfg.LayoutOptions())
	if err != nil {
		return err
	}
	for i := 0; i < numSteps && !st.Status.Done(); i++ {
		if _, err := layout.StepState(ctx, st); err != nil && !layout.IsWarning(err) {
			return err
		}
	}
	logger.Info("stepped", "steps", st.Steps, "energy", st.Energy, "grad", st.GradNorm, "status", st.Status)

	if outPath == "" {
		return st.Describe().Encode(os.Stdout, layout.FormatJSON)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := st.Describe().Encode(f, layout.FormatFromPath(outPath)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(st *layout.State, elapsed time.Duration) {
	status := okStyle.Render(st.Status.String())
	if st.Status != layout.Converged {
		status = warnStyle.Render(st.Status.String())
	}
	rows := [][2]string{
		{"status", status},
		{"energy", valueStyle.Render(fmt.Sprintf("%.6g", st.Energy))},
		{"grad norm", valueStyle.Render(fmt.Sprintf("%.3g", st.GradNorm))},
		{"steps", valueStyle.Render(fmt.Sprintf("%d (%d iterations)", st.Steps, st.Iterations))},
		{"elapsed", valueStyle.Render(elapsed.Round(time.Millisecond).String())},
	}
	for _, r := range rows {
		fmt.Println(labelStyle.Render(r[0]) + r[1])
	}
}

func printBreakdown(st *layout.State) {
	terms := st.EnergyFunc().Breakdown(st.Varying)
	if len(terms) == 0 {
		return
	}
	rows := make([][]string, len(terms))
	for i, tv := range terms {
		mark := "✓"
		if !tv.Satisfied() {
			mark = "✗"
		}
		if tv.Term.Kind == constraint.Objective {
			mark = "·"
		}
		rows[i] = []string{mark, tv.Term.Name, strings.Join(tv.Term.Args, ", "),
			fmt.Sprintf("%.4g", tv.Raw), fmt.Sprintf("%.4g", tv.Energy)}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("", "term", "shapes", "value", "energy").
		Rows(rows...)
	fmt.Println()
	fmt.Println(t.Render())
}
