package render

import (
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/olivier-w/stardrift/internal/field"
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

const (
	dotsPerCol = 2
	dotsPerRow = 4

	// litThreshold is how far above the background a dot must be to be set.
	litThreshold = 0.12
)

type dot struct {
	r, g, b float64
}

// Canvas is a Surface backed by Unicode Braille cells. Each terminal cell
// holds a 2x4 dot grid, so a cols x rows terminal is a (2*cols) x (4*rows)
// pixel surface.
type Canvas struct {
	cols, rows int
	w, h       int
	dots       []dot
	bg         dot
	sx, sy     float64
	mode       Composite

	profile termenv.Profile
	reg     *Registry
}

// NewCanvas returns a canvas of cols x rows terminal cells. A nil registry
// gets a private one.
func NewCanvas(cols, rows int, profile termenv.Profile, reg *Registry) *Canvas {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Canvas{profile: profile, reg: reg, sx: 1, sy: 1}
	c.Resize(cols, rows)
	return c
}

// Resize changes the cell dimensions and discards the current frame.
func (c *Canvas) Resize(cols, rows int) {
	c.cols = max(cols, 1)
	c.rows = max(rows, 1)
	c.w = c.cols * dotsPerCol
	c.h = c.rows * dotsPerRow
	c.dots = make([]dot, c.w*c.h)
}

// Cells returns the size in terminal cells.
func (c *Canvas) Cells() (cols, rows int) { return c.cols, c.rows }

// Dots returns the size in pixels.
func (c *Canvas) Dots() (w, h int) { return c.w, c.h }

// Viewport describes the canvas in logical pixels, with pixelRatio dots per
// pixel on each axis.
func (c *Canvas) Viewport(pixelRatio float64) field.Viewport {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return field.Viewport{
		Width:      float64(c.w) / pixelRatio,
		Height:     float64(c.h) / pixelRatio,
		PixelRatio: pixelRatio,
	}
}

func (c *Canvas) Begin(width, height, pixelRatio float64) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	c.sx, c.sy = pixelRatio, pixelRatio
	if width > 0 {
		c.sx = float64(c.w) / width
	}
	if height > 0 {
		c.sy = float64(c.h) / height
	}
}

func (c *Canvas) Fill(col colorful.Color) {
	c.bg = dot{col.R, col.G, col.B}
	for i := range c.dots {
		c.dots[i] = c.bg
	}
}

func (c *Canvas) SetComposite(mode Composite) { c.mode = mode }

func (c *Canvas) blend(x, y int, col colorful.Color, alpha float64) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h || alpha <= 0 {
		return
	}
	alpha = math.Min(alpha, 1)
	d := &c.dots[y*c.w+x]
	switch c.mode {
	case Lighter:
		d.r += col.R * alpha
		d.g += col.G * alpha
		d.b += col.B * alpha
	default:
		d.r = d.r*(1-alpha) + col.R*alpha
		d.g = d.g*(1-alpha) + col.G*alpha
		d.b = d.b*(1-alpha) + col.B*alpha
	}
}

func (c *Canvas) Circle(x, y, r float64, col colorful.Color, alpha float64) {
	cx, cy := x*c.sx, y*c.sy
	rr := math.Max(r*math.Min(c.sx, c.sy), 0.5)
	x0, x1 := int(math.Floor(cx-rr)), int(math.Ceil(cx+rr))
	y0, y1 := int(math.Floor(cy-rr)), int(math.Ceil(cy+rr))
	hit := false
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			dx := float64(px) + 0.5 - cx
			dy := float64(py) + 0.5 - cy
			if dx*dx+dy*dy <= rr*rr {
				c.blend(px, py, col, alpha)
				hit = true
			}
		}
	}
	if !hit {
		c.blend(int(math.Floor(cx)), int(math.Floor(cy)), col, alpha)
	}
}

func (c *Canvas) Line(x0, y0, x1, y1 float64, col colorful.Color, alpha float64) {
	ax, ay := x0*c.sx, y0*c.sy
	bx, by := x1*c.sx, y1*c.sy
	steps := int(math.Ceil(math.Max(math.Abs(bx-ax), math.Abs(by-ay))))
	if steps == 0 {
		c.blend(int(ax), int(ay), col, alpha)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.blend(int(math.Floor(ax+(bx-ax)*t)), int(math.Floor(ay+(by-ay)*t)), col, alpha)
	}
}

func (c *Canvas) lit(d dot) bool {
	return d.r-c.bg.r > litThreshold || d.g-c.bg.g > litThreshold || d.b-c.bg.b > litThreshold
}

// String renders the current frame as rows of colored braille cells. Each
// cell takes the color of its brightest dot.
func (c *Canvas) String() string {
	var sb strings.Builder
	sb.Grow(c.rows * (c.cols*4 + 1))
	for row := range c.rows {
		st := newANSIState(c.profile, c.reg)
		for col := range c.cols {
			var pattern uint
			var best dot
			bestLum := -1.0
			for dx := range dotsPerCol {
				for dy := range dotsPerRow {
					d := c.dots[(row*dotsPerRow+dy)*c.w+col*dotsPerCol+dx]
					if !c.lit(d) {
						continue
					}
					pattern |= 1 << brailleBits[dx][dy]
					if lum := d.r + d.g + d.b; lum > bestLum {
						bestLum = lum
						best = d
					}
				}
			}
			if pattern == 0 {
				st.reset(&sb)
				sb.WriteByte(' ')
				continue
			}
			st.set(&sb, toRGB8(colorful.Color{R: best.r, G: best.g, B: best.b}))
			sb.WriteRune(rune(0x2800 + pattern))
		}
		st.reset(&sb)
		if row < c.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Lit reports whether the pixel at (x, y) stands out from the background.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return false
	}
	return c.lit(c.dots[y*c.w+x])
}
