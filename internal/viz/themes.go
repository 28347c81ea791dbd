package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for the viewer and for SVG export.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	// Shapes cycles over shapes in description order.
	Shapes []lipgloss.Color
}

var (
	ThemeDefault = Theme{
		Name:       "default",
		Primary:    lipgloss.Color("#00ccff"),
		Accent:     lipgloss.Color("#ff00ff"),
		Background: lipgloss.Color("#0a0a0a"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#666688"),
		Success:    lipgloss.Color("#00ff88"),
		Warning:    lipgloss.Color("#ffaa00"),
		Error:      lipgloss.Color("#ff4444"),
		Shapes: []lipgloss.Color{
			"#00ccff", "#ff00ff", "#ffcc00", "#00ff88", "#ff8844", "#aa88ff",
		},
	}

	ThemePaper = Theme{
		Name:       "paper",
		Primary:    lipgloss.Color("#222222"),
		Accent:     lipgloss.Color("#0055aa"),
		Background: lipgloss.Color("#ffffff"),
		Text:       lipgloss.Color("#111111"),
		Muted:      lipgloss.Color("#888888"),
		Success:    lipgloss.Color("#227722"),
		Warning:    lipgloss.Color("#aa6600"),
		Error:      lipgloss.Color("#aa0000"),
		Shapes: []lipgloss.Color{
			"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b",
		},
	}

	ThemeRetroGreen = Theme{
		Name:       "retro",
		Primary:    lipgloss.Color("#00ff00"),
		Accent:     lipgloss.Color("#88ff88"),
		Background: lipgloss.Color("#001100"),
		Text:       lipgloss.Color("#00ff00"),
		Muted:      lipgloss.Color("#005500"),
		Success:    lipgloss.Color("#88ff88"),
		Warning:    lipgloss.Color("#ffff00"),
		Error:      lipgloss.Color("#ff0000"),
		Shapes:     []lipgloss.Color{"#00ff00", "#88ff88", "#00cc00"},
	}

	ThemeSunset = Theme{
		Name:       "sunset",
		Primary:    lipgloss.Color("#ff6b6b"),
		Accent:     lipgloss.Color("#ff9ff3"),
		Background: lipgloss.Color("#2d1b2e"),
		Text:       lipgloss.Color("#fff5f5"),
		Muted:      lipgloss.Color("#8b6b8c"),
		Success:    lipgloss.Color("#5fd068"),
		Warning:    lipgloss.Color("#ffc048"),
		Error:      lipgloss.Color("#ff4757"),
		Shapes:     []lipgloss.Color{"#ff6b6b", "#feca57", "#ff9ff3", "#48dbfb"},
	}

	CurrentTheme = ThemeDefault

	Themes = []Theme{
		ThemeDefault,
		ThemePaper,
		ThemeRetroGreen,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDefault
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme returns the name after current in Themes, wrapping around.
func NextTheme(current string) string {
	names := ThemeNames()
	for i, name := range names {
		if name == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// ShapeColor is the palette color of the i-th shape.
func (t Theme) ShapeColor(i int) lipgloss.Color {
	if len(t.Shapes) == 0 {
		return t.Primary
	}
	return t.Shapes[i%len(t.Shapes)]
}
