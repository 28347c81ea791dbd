package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/config"
	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/export"
	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/storage"
	"github.com/san-kum/layoutopt/internal/viz"
)

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Shapes),
			strconv.Itoa(len(r.Terms)),
			strconv.Itoa(r.Steps),
			fmt.Sprintf("%.4g", r.Energy),
			r.Status.String(),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "TIME", "SHAPES", "TERMS", "STEPS", "ENERGY", "STATUS").
		Rows(rows...)
	fmt.Println(t.Render())
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	runID := args[0]
	meta, err := store.Load(runID)
	if err != nil {
		return err
	}
	trace, err := store.LoadTrace(runID)
	if err != nil {
		return err
	}
	snap, err := store.LoadSnapshot(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("status: %s after %d steps\n\n", meta.Status, meta.Steps)

	if energies := trace.Energies(); len(energies) > 1 {
		fmt.Println(asciigraph.Plot(log10(energies),
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("log10 energy per step"),
		))
		fmt.Println()
		fmt.Println(asciigraph.Plot(log10(trace.GradNorms()),
			asciigraph.Height(plotHeight/2),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("log10 gradient norm per step"),
		))
		fmt.Println()
	}

	canvas := viz.NewCanvas(plotWidth, plotHeight*2)
	viz.DrawSnapshot(canvas, *snap)
	fmt.Println(canvas.String())
	return nil
}

// log10 maps values onto a log scale, flooring zeros so a converged run
// still plots.
func log10(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log10(math.Max(v, 1e-12))
	}
	return out
}

// exportSVG renders a saved run, or a description file as given (or
// optimized first with --converge).
func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := storage.New(cfg.DataDir)

	var snap layout.Snapshot
	if info, statErr := os.Stat(args[0]); statErr == nil && !info.IsDir() {
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
		if converge {
			if _, err := layout.StepUntilConvergence(ctx, st); err != nil && !layout.IsWarning(err) {
				return err
			}
		}
		snap = st.Snapshot()
	} else {
		loaded, err := store.LoadSnapshot(args[0])
		if err != nil {
			return err
		}
		snap = *loaded
	}

	opts := export.DefaultSVGOptions()
	opts.Width = svgWidth
	opts.Theme = viz.GetTheme(theme)
	opts.Labels = !noLabels
	if err := writeOut(outPath, export.SnapshotToSVG(snap, opts)); err != nil {
		return err
	}

	if withTrace == "" {
		return nil
	}
	trace, err := store.LoadTrace(args[0])
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	svg := export.TraceToSVG(trace.Energies(), svgWidth, svgWidth/3, string(opts.Theme.Accent), true)
	return writeOut(withTrace, svg)
}

func writeOut(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// exportGraph writes the constraint graph of a description as DOT, or as
// SVG when the output path ends in .svg.
func exportGraph(cmd *cobra.Command, args []string) error {
	desc, err := layout.DecodeFile(args[0])
	if err != nil {
		return err
	}
	dot := export.GraphToDOT(desc)
	if !strings.EqualFold(filepath.Ext(outPath), ".svg") {
		return writeOut(outPath, dot)
	}
	svg, err := export.RenderDOT(cmd.Context(), dot)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, svg, 0644)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	runID := args[0]
	meta, err := store.Load(runID)
	if err != nil {
		return err
	}
	snap, err := store.LoadSnapshot(runID)
	if err != nil {
		return err
	}
	desc, err := store.LoadDescription(runID)
	if err != nil {
		return err
	}
	out := struct {
		Metadata    *storage.RunMetadata `json:"metadata"`
		Snapshot    *layout.Snapshot     `json:"snapshot"`
		Description *layout.Description  `json:"description"`
		Trace       []float64            `json:"energy_trace,omitempty"`
	}{Metadata: meta, Snapshot: snap, Description: desc}
	if trace, err := store.LoadTrace(runID); err == nil {
		out.Trace = trace.Energies()
	}
	return storage.ExportJSON(os.Stdout, out)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-12s eps_grad=%g max_steps=%d max_iterations=%d starts=%d parallel=%t\n",
			name, p.Optim.EpsGrad, p.MaxSteps, p.Optim.MaxIterations, p.Starts, p.Parallel)
	}
	return nil
}

func listConstraints(cmd *cobra.Command, args []string) error {
	entries := constraint.List()
	rows := make([][]string, len(entries))
	for i, e := range entries {
		accepts := make([]string, len(e.Accepts))
		for j, ks := range e.Accepts {
			names := make([]string, len(ks))
			for k, kind := range ks {
				names[k] = string(kind)
			}
			accepts[j] = strings.Join(names, "|")
		}
		rows[i] = []string{e.Name, e.Kind.String(), strings.Join(accepts, ", "), e.Doc}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "KIND", "SHAPES", "DESCRIPTION").
		Rows(rows...)
	fmt.Println(t.Render())
	return nil
}
