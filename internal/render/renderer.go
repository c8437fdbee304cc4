package render

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/field"
)

const (
	trailAlpha = 0.3
	glowRadius = 2.5
	glowAlpha  = 0.2
)

// Renderer paints a field onto a Surface.
type Renderer struct {
	palette    []colorful.Color
	background colorful.Color

	trails         bool
	trailThreshold float64
	glowThreshold  float64
	opacityFloor   float64
}

func New(cfg config.Config) *Renderer {
	return &Renderer{
		palette:        cfg.Colors(),
		background:     cfg.BackgroundColor(),
		trails:         cfg.EnableTrails,
		trailThreshold: cfg.TrailThreshold,
		glowThreshold:  cfg.GlowThreshold,
		opacityFloor:   cfg.OpacityFloor,
	}
}

// Draw repaints the surface and reports how many stars were drawn. A nil
// surface draws nothing.
func (r *Renderer) Draw(s Surface, f *field.Field) int {
	if s == nil || f == nil {
		return 0
	}
	vp := f.Viewport()
	s.Begin(vp.Width, vp.Height, vp.PixelRatio)

	// Repaint with the background; the surface is never cleared to transparent.
	s.SetComposite(SourceOver)
	s.Fill(r.background)

	s.SetComposite(Lighter)
	drawn := 0
	stars := f.Stars()
	for i := range stars {
		st := &stars[i]
		if st.Opacity <= r.opacityFloor {
			continue
		}
		c := r.color(st.Color)

		if r.trails {
			if d := math.Hypot(st.X-st.PrevX, st.Y-st.PrevY); d > r.trailThreshold {
				s.Line(st.PrevX, st.PrevY, st.X, st.Y, c, st.Opacity*trailAlpha)
			}
		}
		s.Circle(st.X, st.Y, st.Size, c, st.Opacity)
		if st.Opacity > r.glowThreshold {
			s.Circle(st.X, st.Y, st.Size*glowRadius, c, st.Opacity*glowAlpha)
		}
		drawn++
	}
	s.SetComposite(SourceOver)
	return drawn
}

func (r *Renderer) color(i int) colorful.Color {
	if len(r.palette) == 0 {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	if i < 0 {
		i = -i
	}
	return r.palette[i%len(r.palette)]
}
