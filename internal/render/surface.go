package render

import colorful "github.com/lucasb-eyer/go-colorful"

// Composite selects how drawn pixels combine with what is already there.
type Composite uint8

const (
	SourceOver Composite = iota
	Lighter              // additive
)

// Surface is a 2D drawing target in logical pixels.
type Surface interface {
	// Begin starts a frame for a viewport of width x height logical
	// pixels at the given device pixel ratio.
	Begin(width, height, pixelRatio float64)
	Fill(c colorful.Color)
	SetComposite(mode Composite)
	Circle(x, y, r float64, c colorful.Color, alpha float64)
	Line(x0, y0, x1, y1 float64, c colorful.Color, alpha float64)
}
