package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/shape"
	"github.com/san-kum/layoutopt/internal/viz"
)

// SVGOptions controls SnapshotToSVG.
type SVGOptions struct {
	// Width is the image width in pixels; height follows the layout aspect.
	Width  int
	Theme  viz.Theme
	Labels bool
	// Padding is the margin around the layout as a fraction of its size.
	Padding float64
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Theme: viz.ThemePaper, Labels: true, Padding: 0.05}
}

// SnapshotToSVG draws every shape of snap in description order.
func SnapshotToSVG(snap layout.Snapshot, opts SVGOptions) string {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	box := viz.Bounds(snap).Pad(opts.Padding)
	height := int(math.Ceil(float64(opts.Width) * box.Height() / box.Width()))
	t := opts.Theme

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%s %s %s %s">
<rect x="%s" y="%s" width="100%%" height="100%%" fill="%s"/>
`, opts.Width, height, num(box.MinX), num(box.MinY), num(box.Width()), num(box.Height()),
		num(box.MinX), num(box.MinY), t.Background))

	for i, s := range snap.Shapes {
		color := string(t.ShapeColor(i))
		sb.WriteString(shapeElement(s, color, string(t.Text), opts.Labels))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func shapeElement(s layout.ShapeSnapshot, color, text string, labels bool) string {
	f := s.Fields
	name := html.EscapeString(s.Name)
	style := fmt.Sprintf(`fill="%s" fill-opacity="0.25" stroke="%s" stroke-width="1.5"`, color, color)
	switch s.Kind {
	case shape.Circle:
		return fmt.Sprintf(`<circle id="%s" cx="%s" cy="%s" r="%s" %s/>`+"\n",
			name, num(f["x"]), num(f["y"]), num(math.Abs(f["r"])), style)
	case shape.Ellipse:
		return fmt.Sprintf(`<ellipse id="%s" cx="%s" cy="%s" rx="%s" ry="%s" %s/>`+"\n",
			name, num(f["x"]), num(f["y"]), num(math.Abs(f["rx"])), num(math.Abs(f["ry"])), style)
	case shape.Square, shape.Rectangle:
		b := viz.ShapeBox(s)
		return fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" %s/>`+"\n",
			name, num(b.MinX), num(b.MinY), num(b.Width()), num(b.Height()), style)
	case shape.Line:
		return fmt.Sprintf(`<line id="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="2"/>`+"\n",
			name, num(f["startX"]), num(f["startY"]), num(f["endX"]), num(f["endY"]), color)
	case shape.Label:
		if !labels {
			return ""
		}
		content := s.Props["text"]
		if content == "" {
			content = s.Name
		}
		size := math.Max(f["h"], 1)
		return fmt.Sprintf(`<text id="%s" x="%s" y="%s" font-size="%s" text-anchor="middle" dominant-baseline="central" fill="%s">%s</text>`+"\n",
			name, num(f["x"]), num(f["y"]), num(size), text, html.EscapeString(content))
	}
	return ""
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// CanvasToSVG converts a Braille canvas to SVG format.
func CanvasToSVG(canvas *viz.Canvas, scale float64, t viz.Theme) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, t.Background, t.Primary))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// TraceToSVG plots values against their index as a polyline, for example
// the energy after every step. logScale plots log10 of positive values.
func TraceToSVG(values []float64, width, height int, strokeColor string, logScale bool) string {
	if len(values) < 2 {
		return ""
	}
	ys := make([]float64, len(values))
	for i, v := range values {
		if logScale {
			v = math.Log10(math.Max(v, 1e-300))
		}
		ys[i] = v
	}

	minY, maxY := ys[0], ys[0]
	for _, y := range ys {
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2
	rangeX := float64(len(ys) - 1)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, y := range ys {
		px := float64(i) / rangeX * float64(width)
		py := float64(height) - (y-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
		}
	}

	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}
