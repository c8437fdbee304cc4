package field

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/olivier-w/stardrift/internal/config"
)

const (
	lcgMul = 9301
	lcgInc = 49297
	lcgMod = 233280
)

// LCG is the linear-congruential generator behind seeded layouts. Identical
// seeds yield identical stars on every platform.
type LCG struct {
	state int64
}

func NewLCG(seed int64) *LCG {
	s := seed % lcgMod
	if s < 0 {
		s += lcgMod
	}
	return &LCG{state: s}
}

// Float64 returns the next value in [0, 1).
func (r *LCG) Float64() float64 {
	r.state = (r.state*lcgMul + lcgInc) % lcgMod
	return float64(r.state) / lcgMod
}

// DateSeed encodes the calendar date of t as yyyymmdd.
func DateSeed(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y*10000 + int(m)*100 + d)
}

// Strategy names how a star array was produced.
type Strategy uint8

const (
	StrategyRandom Strategy = iota
	StrategyDateSeeded
	StrategyRestored
)

func (s Strategy) String() string {
	switch s {
	case StrategyRestored:
		return "restored"
	case StrategyDateSeeded:
		return "date-seeded"
	default:
		return "random"
	}
}

// FromSeed computes every attribute of a star from seed. Stars start
// visible at their base opacity.
func FromSeed(seed int64, vp Viewport, cfg config.Config) Star {
	r := NewLCG(seed)

	z := 0.1 + r.Float64()*0.8
	depth := (z - 0.1) / 0.8
	x := r.Float64() * vp.Width
	y := r.Float64() * vp.Height

	size := lerp(cfg.MinSize, cfg.MaxSize, (r.Float64()+depth)/2)
	baseOpacity := clamp01(lerp(cfg.MinOpacity, cfg.MaxOpacity, (r.Float64()+depth)/2))

	color := 0
	if n := len(cfg.Palette); n > 0 {
		color = min(int(r.Float64()*float64(n)), n-1)
	} else {
		r.Float64()
	}

	pulsePhase := r.Float64() * 2 * math.Pi
	pulseSpeed := lerp(cfg.MinPulseSpeed, cfg.MaxPulseSpeed, r.Float64())

	angle := r.Float64() * 2 * math.Pi
	dx, dy := normalize(math.Cos(angle), math.Sin(angle))
	driftSpeed := lerp(cfg.MinDriftSpeed, cfg.MaxDriftSpeed, r.Float64())

	return Star{
		X:               x,
		Y:               y,
		BaseY:           y,
		Z:               z,
		Size:            size,
		BaseOpacity:     baseOpacity,
		Opacity:         baseOpacity,
		Color:           color,
		PulsePhase:      pulsePhase,
		PulseSpeed:      pulseSpeed,
		DriftDirectionX: dx,
		DriftDirectionY: dy,
		DriftSpeed:      driftSpeed,
		MovementSpeed:   0.5 + depth*0.5,
		ParallaxFactor:  cfg.ParallaxStrength * (0.2 + 0.8*depth),
		State:           Visible,
		FadeProgress:    1,
		OriginalSeed:    seed,
		PrevX:           x,
		PrevY:           y,
	}
}

// Generate builds count stars with the given strategy. StrategyRestored is
// not a generator; it falls back to random.
func Generate(strategy Strategy, count int, vp Viewport, cfg config.Config, now time.Time, rnd *rand.Rand) []Star {
	count = max(count, 0)
	stars := make([]Star, count)
	dateSeed := DateSeed(now)
	for i := range stars {
		var seed int64
		if strategy == StrategyDateSeeded {
			seed = dateSeed*1000 + int64(i)
		} else {
			seed = rnd.Int64()
		}
		stars[i] = FromSeed(seed, vp, cfg)
	}
	return stars
}

// SeedStrategy is the generator the configuration asks for when no
// snapshot is available.
func SeedStrategy(cfg config.Config) Strategy {
	if cfg.UseDateSeed {
		return StrategyDateSeeded
	}
	return StrategyRandom
}
