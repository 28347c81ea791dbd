package viz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/layoutopt/internal/layout"
)

const (
	width           = 60
	height          = 22
	historyCapacity = 600
)

type TickMsg time.Time

// stepMsg carries the result of one StepState run off the UI goroutine.
type stepMsg struct {
	st  *layout.State
	err error
}

// Model autosteps a layout and draws every snapshot. At most one step is in
// flight at a time.
type Model struct {
	ctx           context.Context
	st            *layout.State
	name          string
	interval      time.Duration
	rng           *rand.Rand
	width, height int
	canvas        *Canvas
	styles        Styles

	snap      layout.Snapshot
	history   []layout.Snapshot
	energies  []float64
	playHead  int
	startGrad float64

	running  bool
	inFlight bool
	err      error
	showHelp bool
	frame    int
}

// NewModel wraps st for autostepping every interval.
func NewModel(ctx context.Context, st *layout.State, name string, interval time.Duration, seed int64) Model {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	m := Model{
		ctx:      ctx,
		st:       st,
		name:     name,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		width:    width,
		height:   height,
		canvas:   NewCanvas(width, height),
		styles:   NewStyles(CurrentTheme),
		history:  make([]layout.Snapshot, 0, historyCapacity),
		energies: make([]float64, 0, historyCapacity),
		playHead: -1,
		running:  true,
	}
	m.record(st.Snapshot())
	m.startGrad = st.GradNorm
	return m
}

// State returns the layout as last reported by a completed step.
func (m Model) State() *layout.State { return m.st }

func (m Model) Err() error { return m.err }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) stepCmd() tea.Cmd {
	ctx, st := m.ctx, m.st
	return func() tea.Msg {
		st, err := layout.StepState(ctx, st)
		return stepMsg{st: st, err: err}
	}
}

// Update handles input events and schedules steps.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running && m.canStep() {
				m.inFlight = true
				return m, m.stepCmd()
			}
		case "r":
			if !m.inFlight {
				if st, err := layout.Resample(m.st, m.rng); err != nil {
					m.err = err
				} else {
					m.restart(st)
				}
			}
		case "z":
			if !m.inFlight {
				if st, err := m.st.Reset(); err != nil {
					m.err = err
				} else {
					m.restart(st)
				}
			}
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "t":
			SetTheme(NextTheme(CurrentTheme.Name))
			m.styles = NewStyles(CurrentTheme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		w := max(msg.Width-50, 20)
		h := max(msg.Height-4, 8)
		m.width, m.height = w, h
		m.canvas = NewCanvas(w, h)
	case TickMsg:
		m.frame++
		if m.running && m.canStep() {
			m.inFlight = true
			return m, tea.Batch(m.stepCmd(), m.tick())
		}
		return m, m.tick()
	case stepMsg:
		m.inFlight = false
		m.st = msg.st
		m.err = msg.err
		m.record(m.st.Snapshot())
	}
	return m, nil
}

func (m Model) canStep() bool {
	if m.inFlight || m.playHead != -1 || m.st.Status.Done() {
		return false
	}
	return m.err == nil || layout.IsWarning(m.err)
}

func (m *Model) record(s layout.Snapshot) {
	m.snap = s
	m.history = append(m.history, s)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	m.energies = append(m.energies, s.Energy)
	if len(m.energies) > historyCapacity {
		m.energies = m.energies[1:]
	}
}

func (m *Model) restart(st *layout.State) {
	m.st = st
	m.err = nil
	m.history = m.history[:0]
	m.energies = m.energies[:0]
	m.playHead = -1
	m.startGrad = st.GradNorm
	m.record(st.Snapshot())
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m Model) shown() layout.Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.snap
}

// View renders the TUI interface.
func (m Model) View() string {
	snap := m.shown()
	m.canvas.Clear()
	DrawSnapshot(m.canvas, snap)
	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())

	st := m.styles
	var s strings.Builder
	s.WriteString(st.Header.Render(GradientText(strings.ToUpper(m.name), CurrentTheme.Primary, CurrentTheme.Accent)) + "\n")

	status := st.Status(snap.Status, !m.running, m.err)
	if m.playHead != -1 {
		status = st.Subtle.Render(fmt.Sprintf("REPLAY %d/%d", m.playHead+1, len(m.history)))
	} else if m.inFlight {
		status += " " + AnimatedSpinner(m.frame)
	}
	s.WriteString(status + "\n\n")

	if len(m.energies) > 1 {
		chart := asciigraph.Plot(m.energies, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("Energy"))
		s.WriteString(st.Graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Steps", fmt.Sprintf("%d", snap.Steps))
	row("Iterations", fmt.Sprintf("%d", snap.Iterations))
	row("Energy", fmt.Sprintf("%.6g", snap.Energy))
	row("Grad norm", fmt.Sprintf("%.3g", snap.GradNorm))
	eps := m.st.Options().Optim.EpsGrad
	s.WriteString(st.Label.Render("Progress") + ProgressBar(ConvergenceProgress(snap.GradNorm, m.startGrad, eps), 20, CurrentTheme) + "\n")
	if m.err != nil && !layout.IsWarning(m.err) {
		s.WriteString("\n" + st.Subtle.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + Separator(34, st) + "\nSHAPES\n")
	for i, sh := range snap.Shapes {
		dot := lipgloss.NewStyle().Foreground(CurrentTheme.ShapeColor(i)).Render("●")
		s.WriteString(fmt.Sprintf("%s %-8s %s\n", dot, sh.Name, st.Subtle.Render(string(sh.Kind))))
	}
	s.WriteString(st.Help.Render("SP:Pause S:Step R:Resample Z:Reset\nT:Theme [ ]:Scrub ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume autostep    ║
║  S        - Single step (paused)     ║
║  R        - Resample varying values  ║
║  Z        - Reset to description     ║
║  [        - Scrub back               ║
║  ]        - Scrub forward            ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`
