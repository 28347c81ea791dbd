package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/config"
	"github.com/san-kum/layoutopt/internal/layout"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	seed       int64
	starts     int
	maxSteps   int
	parallel   bool
	runName    string
	noSave     bool
	numSteps   int
	outPath    string
	addr       string
	interval   int
	theme      string
	svgWidth   int
	converge   bool
	withTrace  string
	noLabels   bool
	plotWidth  int
	plotHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "layoutopt",
		Short:         "constraint-based diagram layout optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [description]",
		Short: "optimize a description until convergence and save the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runLayout,
	}
	addSolverFlags(runCmd)
	runCmd.Flags().IntVar(&starts, "starts", 1, "independent random starts; the lowest energy wins")
	runCmd.Flags().StringVar(&runName, "name", "", "run name (default: file name)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the run to the data directory")

	stepCmd := &cobra.Command{
		Use:   "step [description]",
		Short: "take a fixed number of steps and write the updated description",
		Args:  cobra.ExactArgs(1),
		RunE:  stepLayout,
	}
	addSolverFlags(stepCmd)
	stepCmd.Flags().IntVarP(&numSteps, "steps", "n", 1, "number of steps")
	stepCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout, json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve layout sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	addSolverFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	liveCmd := &cobra.Command{
		Use:   "live [description...]",
		Short: "watch a layout converge in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLive,
	}
	addSolverFlags(liveCmd)
	liveCmd.Flags().IntVar(&interval, "interval", 0, "milliseconds between steps (default from config)")
	liveCmd.Flags().StringVar(&theme, "theme", "", "color theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energy trace and final layout of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 72, "plot width in columns")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height in rows")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id | description]",
		Short: "render a run or description to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	addSolverFlags(exportSVGCmd)
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width in pixels")
	exportSVGCmd.Flags().StringVar(&theme, "theme", "paper", "color theme")
	exportSVGCmd.Flags().BoolVar(&converge, "converge", false, "optimize a description before rendering")
	exportSVGCmd.Flags().StringVar(&withTrace, "trace", "", "also write the energy trace of a run to this path")
	exportSVGCmd.Flags().BoolVar(&noLabels, "no-labels", false, "omit shape names")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	graphCmd := &cobra.Command{
		Use:   "graph [description]",
		Short: "draw the constraint graph as DOT or SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportGraph,
	}
	graphCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path; .svg renders with graphviz (default stdout, dot)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	constraintsCmd := &cobra.Command{
		Use:   "constraints",
		Short: "list objectives and constraints",
		Args:  cobra.NoArgs,
		RunE:  listConstraints,
	}

	rootCmd.AddCommand(runCmd, stepCmd, serveCmd, liveCmd, listCmd, plotCmd,
		exportSVGCmd, exportJSONCmd, graphCmd, presetsCmd, constraintsCmd)
	addBatchCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step ceiling (default from config)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "evaluate terms concurrently")
}

// loadConfig layers defaults, then a preset, then a config file, then flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Lookup("seed") != nil && (flags.Changed("seed") || cfg.Seed == 0) {
		cfg.Seed = seed
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	if flags.Changed("starts") {
		cfg.Starts = starts
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flags.Changed("interval") {
		cfg.Live.IntervalMS = interval
	}
	if flags.Changed("theme") {
		cfg.Live.Theme = theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// commandContext is canceled on SIGINT or SIGTERM and carries the logger.
func commandContext(l *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return layout.WithLogger(ctx, l), cancel
}
