package field

import (
	"fmt"
	"math"
)

// State is the fade lifecycle state of a star.
type State uint8

const (
	Visible State = iota
	FadingIn
	FadingOut
)

func (s State) String() string {
	switch s {
	case Visible:
		return "visible"
	case FadingIn:
		return "fading-in"
	case FadingOut:
		return "fading-out"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	if s > FadingOut {
		return nil, fmt.Errorf("invalid star state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "visible":
		*s = Visible
	case "fading-in":
		*s = FadingIn
	case "fading-out":
		*s = FadingOut
	default:
		return fmt.Errorf("unknown star state %q", b)
	}
	return nil
}

// Viewport is the drawing area in logical pixels.
type Viewport struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Star is a single particle. The JSON form is the session snapshot schema;
// Velocity and the previous position are transient and not persisted.
type Star struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	BaseY float64 `json:"baseY"`
	Z     float64 `json:"z"` // 0.1 (far) to 0.9 (near)

	Size        float64 `json:"size"`
	BaseOpacity float64 `json:"baseOpacity"`
	Opacity     float64 `json:"opacity"`
	Color       int     `json:"color"` // palette index

	PulsePhase float64 `json:"pulsePhase"`
	PulseSpeed float64 `json:"pulseSpeed"`

	DriftDirectionX float64 `json:"driftDirectionX"`
	DriftDirectionY float64 `json:"driftDirectionY"`
	DriftSpeed      float64 `json:"driftSpeed"`
	MovementSpeed   float64 `json:"movementSpeed"`
	ParallaxFactor  float64 `json:"parallaxFactor"`

	State        State   `json:"state"`
	FadeProgress float64 `json:"fadeProgress"`
	FadeStart    int64   `json:"fadeStart"` // unix ms
	OriginalSeed int64   `json:"originalSeed"`

	Velocity float64 `json:"-"`
	PrevX    float64 `json:"-"`
	PrevY    float64 `json:"-"`
}

// Fading reports whether the star is in a transitional state.
func (s *Star) Fading() bool {
	return s.State == FadingIn || s.State == FadingOut
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// normalize returns the unit vector of (x, y). Degenerate input falls back
// to pointing right.
func normalize(x, y float64) (float64, float64) {
	m := math.Hypot(x, y)
	if m < 1e-6 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 1, 0
	}
	return x / m, y / m
}
