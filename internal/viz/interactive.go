package viz

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/layoutopt/internal/layout"
)

const (
	stateMenu = iota
	stateLive
)

// Picker lists description files and opens the chosen one in a Model.
type Picker struct {
	ctx      context.Context
	paths    []string
	opts     layout.Options
	interval time.Duration
	seed     int64

	state, cursor int
	err           error
	width, height int
	live          Model
}

func NewPicker(ctx context.Context, paths []string, opts layout.Options, interval time.Duration, seed int64) Picker {
	return Picker{
		ctx:      ctx,
		paths:    paths,
		opts:     opts,
		interval: interval,
		seed:     seed,
		width:    80,
		height:   24,
	}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		p.width, p.height = ws.Width, ws.Height
	}
	if p.state == stateLive {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
			p.state = stateMenu
			return p, nil
		}
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch km.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.paths)-1 {
			p.cursor++
		}
	case "enter":
		if len(p.paths) == 0 {
			return p, nil
		}
		st, err := p.open(p.paths[p.cursor])
		if err != nil {
			p.err = err
			return p, nil
		}
		p.err = nil
		p.live = NewModel(p.ctx, st, strings.TrimSuffix(filepath.Base(p.paths[p.cursor]), filepath.Ext(p.paths[p.cursor])), p.interval, p.seed)
		p.state = stateLive
		next, _ := p.live.Update(tea.WindowSizeMsg{Width: p.width, Height: p.height})
		p.live = next.(Model)
		return p, p.live.Init()
	}
	return p, nil
}

func (p Picker) open(path string) (*layout.State, error) {
	desc, err := layout.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return layout.New(desc, p.opts)
}

func (p Picker) View() string {
	if p.state == stateLive {
		return p.live.View()
	}
	st := NewStyles(CurrentTheme)

	var b strings.Builder
	b.WriteString(st.Header.Render(GradientText("LAYOUTOPT", CurrentTheme.Primary, CurrentTheme.Accent)) + "\n")
	if len(p.paths) == 0 {
		b.WriteString(st.Subtle.Render("no description files") + "\n")
	}
	for i, path := range p.paths {
		line := filepath.Base(path)
		if i == p.cursor {
			b.WriteString(st.Selected.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + st.Subtle.Render(line) + "\n")
		}
	}
	if p.err != nil {
		b.WriteString("\n" + st.Status(layout.Uninitialized, false, p.err) + " " + st.Subtle.Render(fmt.Sprint(p.err)) + "\n")
	}
	b.WriteString(st.Help.Render("↑↓:Select Enter:Open Esc:Back Q:Quit"))
	return st.Panel.Render(b.String())
}
