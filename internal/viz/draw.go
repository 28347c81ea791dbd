package viz

import (
	"math"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/shape"
)

// Box is an axis-aligned extent in layout coordinates.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

func (b Box) union(o Box) Box {
	return Box{
		MinX: math.Min(b.MinX, o.MinX), MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX), MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Pad grows b by frac of its size on every side. A degenerate box grows by
// one unit.
func (b Box) Pad(frac float64) Box {
	dx, dy := b.Width()*frac, b.Height()*frac
	if b.Width() == 0 {
		dx = 1
	}
	if b.Height() == 0 {
		dy = 1
	}
	return Box{b.MinX - dx, b.MinY - dy, b.MaxX + dx, b.MaxY + dy}
}

// ShapeBox is the extent of one resolved shape.
func ShapeBox(s layout.ShapeSnapshot) Box {
	f := s.Fields
	x, y := f["x"], f["y"]
	switch s.Kind {
	case shape.Circle:
		r := math.Abs(f["r"])
		return Box{x - r, y - r, x + r, y + r}
	case shape.Square:
		h := math.Abs(f["side"]) / 2
		return Box{x - h, y - h, x + h, y + h}
	case shape.Ellipse:
		rx, ry := math.Abs(f["rx"]), math.Abs(f["ry"])
		return Box{x - rx, y - ry, x + rx, y + ry}
	case shape.Rectangle, shape.Label:
		w, h := math.Abs(f["w"])/2, math.Abs(f["h"])/2
		return Box{x - w, y - h, x + w, y + h}
	case shape.Line:
		return Box{
			math.Min(f["startX"], f["endX"]), math.Min(f["startY"], f["endY"]),
			math.Max(f["startX"], f["endX"]), math.Max(f["startY"], f["endY"]),
		}
	}
	return Box{x, y, x, y}
}

// Bounds is the union of every shape's extent.
func Bounds(snap layout.Snapshot) Box {
	if len(snap.Shapes) == 0 {
		return Box{-1, -1, 1, 1}
	}
	b := ShapeBox(snap.Shapes[0])
	for _, s := range snap.Shapes[1:] {
		b = b.union(ShapeBox(s))
	}
	return b
}

// Viewport maps layout coordinates onto a pixel grid, preserving aspect
// ratio. Layout y grows downward, as in SVG.
type Viewport struct {
	box   Box
	scale float64
	offX  float64
	offY  float64
}

func NewViewport(box Box, width, height int) Viewport {
	sx := float64(width-1) / box.Width()
	sy := float64(height-1) / box.Height()
	scale := math.Min(sx, sy)
	return Viewport{
		box:   box,
		scale: scale,
		offX:  (float64(width-1) - box.Width()*scale) / 2,
		offY:  (float64(height-1) - box.Height()*scale) / 2,
	}
}

func (v Viewport) Point(x, y float64) (int, int) {
	px := (x-v.box.MinX)*v.scale + v.offX
	py := (y-v.box.MinY)*v.scale + v.offY
	return int(math.Round(px)), int(math.Round(py))
}

func (v Viewport) Length(d float64) int {
	return int(math.Round(math.Abs(d) * v.scale))
}

// DrawSnapshot draws every shape of snap onto c, fitted to the canvas.
func DrawSnapshot(c *Canvas, snap layout.Snapshot) {
	vp := NewViewport(Bounds(snap).Pad(0.05), c.Width*2, c.Height*4)
	for _, s := range snap.Shapes {
		drawShape(c, vp, s)
	}
}

func drawShape(c *Canvas, vp Viewport, s layout.ShapeSnapshot) {
	f := s.Fields
	cx, cy := vp.Point(f["x"], f["y"])
	switch s.Kind {
	case shape.Circle:
		c.DrawCircle(cx, cy, vp.Length(f["r"]))
	case shape.Ellipse:
		c.DrawEllipse(cx, cy, vp.Length(f["rx"]), vp.Length(f["ry"]))
	case shape.Square, shape.Rectangle:
		b := ShapeBox(s)
		x0, y0 := vp.Point(b.MinX, b.MinY)
		x1, y1 := vp.Point(b.MaxX, b.MaxY)
		c.DrawRect(x0, y0, x1, y1)
	case shape.Label:
		c.DrawCross(cx, cy, 2)
	case shape.Line:
		x0, y0 := vp.Point(f["startX"], f["startY"])
		x1, y1 := vp.Point(f["endX"], f["endY"])
		c.DrawLine(x0, y0, x1, y1)
	}
}
