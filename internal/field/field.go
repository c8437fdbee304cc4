package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/olivier-w/stardrift/internal/config"
)

// Field owns the live star array of one animation host. The array length
// is fixed at the configured star count; stars are replaced in place and
// only a full regeneration swaps the slice.
//
// Field is not safe for concurrent use; hosts serialize access on their
// event loop.
type Field struct {
	cfg      config.Config
	stars    []Star
	vp       Viewport
	rnd      *rand.Rand
	strategy Strategy
	scroll   float64

	replace []int // staging for fade-out completions, reused across ticks
}

// New wraps an existing star array. Restored stars that are already spent
// (fading out with no progress left) or carry an unknown state are replaced
// by stars that start fully visible.
func New(cfg config.Config, stars []Star, vp Viewport, strategy Strategy, rnd *rand.Rand, now time.Time) *Field {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x5eed))
	}
	f := &Field{cfg: cfg, stars: stars, vp: vp, rnd: rnd, strategy: strategy}
	for i := range f.stars {
		s := &f.stars[i]
		if s.State > FadingOut || (s.State == FadingOut && s.FadeProgress <= 0) {
			f.stars[i] = f.replacement(*s, now.UnixMilli(), true)
			continue
		}
		s.FadeProgress = clamp01(s.FadeProgress)
		s.DriftDirectionX, s.DriftDirectionY = normalize(s.DriftDirectionX, s.DriftDirectionY)
		s.Opacity = clamp01(s.Opacity)
		s.PrevX, s.PrevY = s.X, s.Y
	}
	return f
}

// Seed generates a fresh field with the configured seed strategy.
func Seed(cfg config.Config, vp Viewport, rnd *rand.Rand, now time.Time) *Field {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x5eed))
	}
	strategy := SeedStrategy(cfg)
	stars := Generate(strategy, cfg.StarCount, vp, cfg, now, rnd)
	return New(cfg, stars, vp, strategy, rnd, now)
}

// Stars returns the live array. Callers must not retain or resize it.
func (f *Field) Stars() []Star { return f.stars }

func (f *Field) Len() int { return len(f.stars) }

func (f *Field) Viewport() Viewport { return f.vp }

func (f *Field) Strategy() Strategy { return f.strategy }

func (f *Field) Config() config.Config { return f.cfg }

// Scroll is the scroll offset used by the most recent Update.
func (f *Field) Scroll() float64 { return f.scroll }

// Fading counts stars in a transitional state.
func (f *Field) Fading() int {
	n := 0
	for i := range f.stars {
		if f.stars[i].Fading() {
			n++
		}
	}
	return n
}

// SetConfig swaps the configuration. A changed star count regenerates the
// field since the array length is otherwise constant.
func (f *Field) SetConfig(cfg config.Config, now time.Time) {
	old := f.cfg
	f.cfg = cfg
	if max(old.StarCount, 0) != max(cfg.StarCount, 0) {
		f.regenerate(now)
	}
}

// Rescale maps every star onto a new viewport proportionally. Seeds and
// fade state are preserved.
func (f *Field) Rescale(vp Viewport) {
	sx, sy := 1.0, 1.0
	if f.vp.Width > 0 {
		sx = vp.Width / f.vp.Width
	}
	if f.vp.Height > 0 {
		sy = vp.Height / f.vp.Height
	}
	for i := range f.stars {
		s := &f.stars[i]
		s.X *= sx
		s.Y *= sy
		s.BaseY *= sy
		s.PrevX *= sx
		s.PrevY *= sy
	}
	f.vp = vp
}

// Resize rescales the field for a viewport change within the configured
// threshold and regenerates it from the seed strategy otherwise. It reports
// whether the field was regenerated.
func (f *Field) Resize(vp Viewport, now time.Time) bool {
	if f.vp.Width <= 0 || f.vp.Height <= 0 || resizeChange(f.vp, vp) > f.cfg.ResizeThreshold {
		f.vp = vp
		f.regenerate(now)
		return true
	}
	f.Rescale(vp)
	return false
}

func resizeChange(old, vp Viewport) float64 {
	dw := math.Abs(vp.Width-old.Width) / old.Width
	dh := math.Abs(vp.Height-old.Height) / old.Height
	return max(dw, dh)
}

func (f *Field) regenerate(now time.Time) {
	f.strategy = SeedStrategy(f.cfg)
	f.stars = Generate(f.strategy, f.cfg.StarCount, f.vp, f.cfg, now, f.rnd)
}

// ErrInvariant is wrapped by every Check failure.
var ErrInvariant = errors.New("star invariant violated")

// Check verifies the per-star invariants and the fixed array length.
func (f *Field) Check() error {
	if len(f.stars) != max(f.cfg.StarCount, 0) {
		return fmt.Errorf("%w: %d stars, want %d", ErrInvariant, len(f.stars), f.cfg.StarCount)
	}
	for i := range f.stars {
		s := &f.stars[i]
		if s.State > FadingOut {
			return fmt.Errorf("%w: star %d has state %v", ErrInvariant, i, s.State)
		}
		if s.Opacity < 0 || s.Opacity > 1 || math.IsNaN(s.Opacity) {
			return fmt.Errorf("%w: star %d opacity %v", ErrInvariant, i, s.Opacity)
		}
		if s.FadeProgress < 0 || s.FadeProgress > 1 || math.IsNaN(s.FadeProgress) {
			return fmt.Errorf("%w: star %d fade progress %v", ErrInvariant, i, s.FadeProgress)
		}
		if m := math.Hypot(s.DriftDirectionX, s.DriftDirectionY); math.Abs(m-1) > 1e-9 {
			return fmt.Errorf("%w: star %d drift magnitude %v", ErrInvariant, i, m)
		}
	}
	return nil
}
