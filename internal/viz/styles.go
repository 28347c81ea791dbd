package viz

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/layoutopt/internal/layout"
)

// Styles derived from a Theme.
type Styles struct {
	Panel    lipgloss.Style
	Header   lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Graph    lipgloss.Style
	Help     lipgloss.Style
	Selected lipgloss.Style
	Subtle   lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	done     lipgloss.Style
	ceiling  lipgloss.Style
	failed   lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(1, 2),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted).
			MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		Value:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Graph:    lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
		Help:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Selected: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Subtle:   lipgloss.NewStyle().Foreground(t.Muted),
		running:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		done:     lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		ceiling:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Status renders the state of the viewer as a colored word.
func (s Styles) Status(st layout.Status, paused bool, err error) string {
	switch {
	case err != nil && !layout.IsWarning(err):
		return s.failed.Render("FAILED")
	case st == layout.Converged:
		return s.done.Render("CONVERGED")
	case st == layout.CeilingReached:
		return s.ceiling.Render("CEILING REACHED")
	case paused:
		return s.paused.Render("PAUSED")
	}
	return s.running.Render("STEPPING")
}

// GradientText colors each rune of text along a linear blend of two colors.
func GradientText(text string, startColor, endColor lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	sr, sg, sb := parseHex(string(startColor))
	er, eg, eb := parseHex(string(endColor))

	var result strings.Builder
	n := len(runes)
	for i, c := range runes {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r := int(float64(sr) + t*float64(er-sr))
		g := int(float64(sg) + t*float64(eg-sg))
		b := int(float64(sb) + t*float64(eb-sb))

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b)))
		result.WriteString(style.Render(string(c)))
	}
	return result.String()
}

func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// ConvergenceProgress maps a gradient norm onto [0, 1] on a log scale
// between start and eps.
func ConvergenceProgress(grad, start, eps float64) float64 {
	if grad <= eps {
		return 1
	}
	if start <= eps || grad >= start {
		return 0
	}
	return math.Log(start/grad) / math.Log(start/eps)
}

// ProgressBar renders a bar filled to percent of width.
func ProgressBar(percent float64, width int, t Theme) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	color := t.Error
	if percent > 0.8 {
		color = t.Success
	} else if percent > 0.4 {
		color = t.Warning
	}
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// SparklineChart renders a mini sparkline from values.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		result.WriteRune(chars[idx])
	}
	return result.String()
}

func Separator(width int, s Styles) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return s.Subtle.Render(left + " ◆ " + right)
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
