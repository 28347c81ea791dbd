package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/viz"
)

// runLive opens one description directly, or a picker over several files or
// a directory of them.
func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	viz.SetTheme(cfg.Live.Theme)

	// The TUI owns the terminal; only warnings go to a log file.
	logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "layoutopt-live.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	ctx, cancel := commandContext(newLogger(logFile))
	defer cancel()

	paths, err := descriptionPaths(args)
	if err != nil {
		return err
	}
	every := time.Duration(cfg.Live.IntervalMS) * time.Millisecond

	var model tea.Model
	if len(paths) == 1 {
		desc, err := layout.DecodeFile(paths[0])
		if err != nil {
			return err
		}
		st, err := layout.New(desc, cfg.LayoutOptions())
		if err != nil {
			return err
		}
		model = viz.NewModel(ctx, st, filepath.Base(paths[0]), every, cfg.Seed)
	} else {
		model = viz.NewPicker(ctx, paths, cfg.LayoutOptions(), every, cfg.Seed)
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(viz.Model); ok && m.State() != nil {
		st := m.State()
		fmt.Printf("%s after %d steps, energy %.6g\n", st.Status, st.Steps, st.Energy)
	}
	return nil
}

func descriptionPaths(args []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, a)
			continue
		}
		for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
			m, err := filepath.Glob(filepath.Join(a, pattern))
			if err != nil {
				return nil, err
			}
			paths = append(paths, m...)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no description files in %v", args)
	}
	return paths, nil
}
