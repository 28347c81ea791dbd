package viz

import (
	"math"
	"strings"
)

// Blank is the empty braille cell. Every cell holds Blank plus a bit per
// lit dot.
const Blank rune = 0x2800

// dotBits maps a dot's (row, column) within a 2x4 braille cell to its bit.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells. Drawing happens in dot coordinates,
// two dots across and four down per cell, with y growing downward.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// locate returns the cell holding dot (x, y) and its bit; ok is false off
// the canvas.
func (c *Canvas) locate(x, y int) (row, col int, bit rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	row, col = y/4, x/2
	if row >= c.Height || col >= c.Width {
		return 0, 0, 0, false
	}
	return row, col, dotBits[y%4][x%2], true
}

// Set lights dot (x, y). Dots off the canvas are dropped.
func (c *Canvas) Set(x, y int) {
	if row, col, bit, ok := c.locate(x, y); ok {
		c.Grid[row][col] |= bit
	}
}

func (c *Canvas) Unset(x, y int) {
	if row, col, bit, ok := c.locate(x, y); ok {
		c.Grid[row][col] = Blank | (c.Grid[row][col] &^ bit)
	}
}

// Lit reports whether dot (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	row, col, bit, ok := c.locate(x, y)
	return ok && c.Grid[row][col]&bit != 0
}

func (c *Canvas) Clear() {
	for _, row := range c.Grid {
		for j := range row {
			row[j] = Blank
		}
	}
}

// DrawLine lights every dot on the segment from (x0, y0) to (x1, y1),
// endpoints included.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for x, y := x0, y0; ; {
		c.Set(x, y)
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// DrawEllipse outlines an axis-aligned ellipse centered at (cx, cy). A
// non-positive radius collapses it to the center dot.
func (c *Canvas) DrawEllipse(cx, cy, rx, ry int) {
	if rx <= 0 || ry <= 0 {
		c.Set(cx, cy)
		return
	}
	n := max(4*(rx+ry), 16)
	px, py := cx+rx, cy
	for i := 1; i <= n; i++ {
		th := 2 * math.Pi * float64(i) / float64(n)
		x := cx + int(math.Round(float64(rx)*math.Cos(th)))
		y := cy + int(math.Round(float64(ry)*math.Sin(th)))
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}
}

func (c *Canvas) DrawCircle(cx, cy, r int) { c.DrawEllipse(cx, cy, r, r) }

// DrawRect outlines the rectangle with opposite corners (x0, y0) and (x1, y1).
func (c *Canvas) DrawRect(x0, y0, x1, y1 int) {
	corners := [5][2]int{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[i+1]
		c.DrawLine(a[0], a[1], b[0], b[1])
	}
}

// DrawCross marks (x, y) with a plus sign whose arms are size dots long.
func (c *Canvas) DrawCross(x, y, size int) {
	c.DrawLine(x-size, y, x+size, y)
	c.DrawLine(x, y-size, x, y+size)
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.Height * (c.Width*3 + 1))
	for _, row := range c.Grid {
		for _, r := range row {
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}
