package render

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/field"
)

type recorder struct {
	ops  []string
	mode Composite
}

func (r *recorder) Begin(w, h, ratio float64) {
	r.ops = append(r.ops, fmt.Sprintf("begin %.0fx%.0f@%.0f", w, h, ratio))
}
func (r *recorder) Fill(colorful.Color) { r.ops = append(r.ops, "fill") }
func (r *recorder) SetComposite(m Composite) {
	r.mode = m
	r.ops = append(r.ops, fmt.Sprintf("mode %d", m))
}
func (r *recorder) Circle(x, y, rad float64, _ colorful.Color, alpha float64) {
	if r.mode != Lighter {
		panic("stars must be drawn additively")
	}
	r.ops = append(r.ops, fmt.Sprintf("circle %.1f %.2f", rad, alpha))
}
func (r *recorder) Line(x0, y0, x1, y1 float64, _ colorful.Color, alpha float64) {
	r.ops = append(r.ops, fmt.Sprintf("line %.2f", alpha))
}

var testNow = time.Date(2026, time.January, 5, 12, 0, 0, 0, time.Local)

func fieldWith(cfg config.Config, stars ...field.Star) *field.Field {
	vp := field.Viewport{Width: 100, Height: 50, PixelRatio: 2}
	cfg.StarCount = len(stars)
	return field.New(cfg, stars, vp, field.StrategyRandom, rand.New(rand.NewPCG(1, 1)), testNow)
}

func TestDrawOrderAndThresholds(t *testing.T) {
	cfg := config.Default()
	f := fieldWith(cfg,
		field.Star{X: 10, Y: 10, Size: 1, BaseOpacity: 0.5, Opacity: 0.5, DriftDirectionX: 1},
		field.Star{X: 20, Y: 10, Size: 2, BaseOpacity: 0.9, Opacity: 0.9, DriftDirectionX: 1},
		field.Star{X: 30, Y: 10, Size: 1, BaseOpacity: 0.005, Opacity: 0.005, DriftDirectionX: 1},
	)

	rec := &recorder{}
	drawn := New(cfg).Draw(rec, f)
	if drawn != 2 {
		t.Fatalf("expected 2 stars drawn, got %d", drawn)
	}

	want := []string{
		"begin 100x50@2",
		"mode 0",
		"fill",
		"mode 1",
		"circle 1.0 0.50",
		"circle 2.0 0.90",
		"circle 5.0 0.18",
		"mode 0",
	}
	if strings.Join(rec.ops, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected ops:\n got %v\nwant %v", rec.ops, want)
	}
}

func TestDrawTrailsWhenMoving(t *testing.T) {
	cfg := config.Default()
	cfg.EnableTrails = true
	f := fieldWith(cfg, field.Star{X: 10, Y: 10, Size: 1, BaseOpacity: 0.5, Opacity: 0.5, DriftDirectionX: 1})
	f.Stars()[0].PrevX = 5

	rec := &recorder{}
	New(cfg).Draw(rec, f)

	found := false
	for _, op := range rec.ops {
		if op == "line 0.15" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected trail line, got %v", rec.ops)
	}
}

func TestDrawNilSurface(t *testing.T) {
	cfg := config.Default()
	f := fieldWith(cfg, field.Star{Opacity: 1, DriftDirectionX: 1})
	if n := New(cfg).Draw(nil, f); n != 0 {
		t.Fatalf("expected nothing drawn, got %d", n)
	}
}

func TestCanvasCircleLightsCenter(t *testing.T) {
	c := NewCanvas(10, 5, termenv.Ascii, nil)
	c.Begin(20, 20, 1)
	c.SetComposite(SourceOver)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	c.Circle(10, 10, 0.5, colorful.Color{R: 1, G: 1, B: 1}, 1)

	if !c.Lit(10, 10) {
		t.Fatal("expected center dot to be lit")
	}
	if c.Lit(0, 0) {
		t.Fatal("expected corner dot to stay dark")
	}
}

func TestCanvasLighterAccumulates(t *testing.T) {
	c := NewCanvas(1, 1, termenv.Ascii, nil)
	c.Begin(2, 4, 1)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	white := colorful.Color{R: 1, G: 1, B: 1}

	c.Circle(0.5, 0.5, 0.1, white, 0.06)
	if c.Lit(0, 0) {
		t.Fatal("a single faint draw should stay below the lit threshold")
	}
	c.Circle(0.5, 0.5, 0.1, white, 0.1)
	if !c.Lit(0, 0) {
		t.Fatal("expected additive draws to accumulate")
	}
}

func TestCanvasStringAscii(t *testing.T) {
	c := NewCanvas(3, 2, termenv.Ascii, nil)
	c.Begin(6, 8, 1)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	c.Circle(0.5, 0.5, 0.3, colorful.Color{R: 1, G: 1, B: 1}, 1)

	out := c.String()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(lines), out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no escapes without colors, got %q", out)
	}
	if r := []rune(lines[0])[0]; r != 0x2801 {
		t.Fatalf("expected top-left braille dot, got %U", r)
	}
}

func TestCanvasStringTrueColorUsesRegistry(t *testing.T) {
	reg := NewRegistry()
	c := NewCanvas(4, 1, termenv.TrueColor, reg)
	c.Begin(8, 4, 1)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	red := colorful.Color{R: 1}
	c.Circle(0.5, 0.5, 0.3, red, 1)
	c.Circle(6.5, 0.5, 0.3, red, 1)

	out := c.String()
	if !strings.Contains(out, "\x1b[38;2;255;0;0m") {
		t.Fatalf("expected truecolor red escape, got %q", out)
	}
	if !strings.HasSuffix(out, "\x1b[0m") && !strings.HasSuffix(out, " ") {
		t.Fatalf("expected row to end reset or blank, got %q", out)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one cached sequence, got %d", reg.Len())
	}
	if !reg.Has(uint32(termenv.TrueColor)<<24 | 255<<16) {
		t.Fatal("expected registry to hold the red sequence")
	}
}

func TestCanvasLineCoversEndpoints(t *testing.T) {
	c := NewCanvas(5, 1, termenv.Ascii, nil)
	c.Begin(10, 4, 1)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	c.Line(0.5, 1.5, 8.5, 1.5, colorful.Color{R: 1, G: 1, B: 1}, 1)

	for x := 0; x <= 8; x++ {
		if !c.Lit(x, 1) {
			t.Fatalf("expected dot (%d, 1) on the line", x)
		}
	}
}

func TestCanvasViewportUsesPixelRatio(t *testing.T) {
	c := NewCanvas(10, 5, termenv.Ascii, nil)
	if vp := c.Viewport(0); vp.Width != 20 || vp.Height != 20 || vp.PixelRatio != 1 {
		t.Fatalf("expected 20x20@1, got %+v", vp)
	}
	vp := c.Viewport(2)
	if vp.Width != 10 || vp.Height != 10 || vp.PixelRatio != 2 {
		t.Fatalf("expected 10x10@2, got %+v", vp)
	}

	// A star at the logical center lands on the center dot.
	c.Begin(vp.Width, vp.Height, vp.PixelRatio)
	c.Fill(colorful.Color{})
	c.SetComposite(Lighter)
	c.Circle(5, 5, 0.5, colorful.Color{R: 1, G: 1, B: 1}, 1)
	if !c.Lit(10, 10) {
		t.Fatal("expected the scaled center to be lit")
	}
}

func TestCanvasRenderField(t *testing.T) {
	cfg := config.Default()
	cfg.StarCount = 40
	c := NewCanvas(40, 10, termenv.ANSI256, nil)
	w, h := c.Dots()
	f := field.Seed(cfg, field.Viewport{Width: float64(w), Height: float64(h), PixelRatio: 1}, rand.New(rand.NewPCG(5, 6)), testNow)

	if n := New(cfg).Draw(c, f); n == 0 {
		t.Fatal("expected stars to be drawn")
	}
	if !strings.ContainsRune(c.String(), '\x1b') {
		t.Fatal("expected colored output")
	}
}
