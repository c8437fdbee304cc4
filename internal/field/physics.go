package field

import (
	"math"
	"time"
)

// Update advances every star by dt seconds. scroll is the current scroll
// offset in pixels. Per star, in order: fade transitions, the random fade
// trigger, the parallax spring, drift, offscreen detection and opacity.
// Stars that finish fading out are replaced after the pass so the array is
// never modified while it is iterated.
func (f *Field) Update(now time.Time, dt, scroll float64) {
	f.scroll = scroll
	if f.cfg.DisableAnimations {
		for i := range f.stars {
			s := &f.stars[i]
			s.State = Visible
			s.FadeProgress = 1
			s.Velocity = 0
			s.Opacity = clamp01(s.BaseOpacity)
			s.PrevX, s.PrevY = s.X, s.Y
		}
		return
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	nowMs := now.UnixMilli()
	t := float64(nowMs) / 1000
	step := fadeStep(dt, f.cfg.FadeDuration)
	fading := f.Fading()
	f.replace = f.replace[:0]

	for i := range f.stars {
		s := &f.stars[i]
		s.PrevX, s.PrevY = s.X, s.Y

		switch s.State {
		case FadingIn:
			s.FadeProgress += step
			if s.FadeProgress >= 1 {
				s.FadeProgress = 1
				s.State = Visible
				fading--
			}
		case FadingOut:
			s.FadeProgress -= step
			if s.FadeProgress <= 0 {
				s.FadeProgress = 0
				s.Opacity = 0
				f.replace = append(f.replace, i)
				continue
			}
		case Visible:
			if f.cfg.EnableTwinkle && fading < f.cfg.MaxFadingStars && f.rnd.Float64() < f.cfg.FadeRate*dt {
				beginFadeOut(s, nowMs)
				fading++
			}
		}

		target := s.BaseY
		if f.cfg.EnableParallax {
			target = s.BaseY - scroll*s.ParallaxFactor
		}
		s.Velocity += (target - s.Y) * f.cfg.SpringStrength
		s.Velocity *= f.cfg.DampingFactor
		s.Velocity = clamp(s.Velocity, -f.cfg.MaxVelocity, f.cfg.MaxVelocity)
		s.Y += s.Velocity

		if f.cfg.EnableDrift {
			f.drift(s, dt)
		}

		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsNaN(s.Velocity) {
			s.X, s.Y, s.BaseY, s.Velocity = f.vp.Width/2, f.vp.Height/2, f.vp.Height/2, 0
		}

		if f.cfg.RegenerateOffscreenStars && s.State == Visible && f.offscreen(s) {
			beginFadeOut(s, nowMs)
			fading++
		}

		s.Opacity = f.opacity(s, t)
	}

	for _, i := range f.replace {
		f.stars[i] = f.replacement(f.stars[i], nowMs, false)
	}
}

func fadeStep(dt float64, d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 {
		return 1
	}
	return dt / secs
}

func beginFadeOut(s *Star, nowMs int64) {
	s.State = FadingOut
	s.FadeProgress = 1
	s.FadeStart = nowMs
}

// drift moves the star along its drift direction, capped per tick, and
// occasionally perturbs the direction.
func (f *Field) drift(s *Star, dt float64) {
	dx := s.DriftDirectionX * s.DriftSpeed * s.MovementSpeed * dt
	dy := s.DriftDirectionY * s.DriftSpeed * s.MovementSpeed * dt
	if d := math.Hypot(dx, dy); d > f.cfg.MaxDriftPerTick && d > 0 {
		k := f.cfg.MaxDriftPerTick / d
		dx *= k
		dy *= k
	}
	s.X += dx
	s.Y += dy
	s.BaseY += dy

	if f.rnd.Float64() < f.cfg.DriftPerturbChance*dt {
		amt := f.cfg.DriftPerturbAmount
		s.DriftDirectionX += (f.rnd.Float64()*2 - 1) * amt
		s.DriftDirectionY += (f.rnd.Float64()*2 - 1) * amt
	}
	s.DriftDirectionX, s.DriftDirectionY = normalize(s.DriftDirectionX, s.DriftDirectionY)
}

func (f *Field) offscreen(s *Star) bool {
	b := f.cfg.OffscreenBuffer
	return s.X < -b || s.X > f.vp.Width+b || s.Y < -b || s.Y > f.vp.Height+b
}

func (f *Field) opacity(s *Star, t float64) float64 {
	mult := 1.0
	switch s.State {
	case Visible:
		if f.cfg.EnableTwinkle {
			mult = 0.85 + 0.15*math.Sin(t*s.PulseSpeed+s.PulsePhase)
		}
	case FadingIn, FadingOut:
		mult = s.FadeProgress
	}
	return clamp01(s.BaseOpacity * mult)
}

// replacement builds the successor of an expired star. Depth, size, color,
// base opacity and pulse speed carry over; position, drift and seed are
// new. Replacements fade in unless initial is set.
func (f *Field) replacement(old Star, nowMs int64, initial bool) Star {
	seed := f.rnd.Int64()
	s := FromSeed(seed, f.vp, f.cfg)

	s.Z = old.Z
	s.Size = old.Size
	s.Color = old.Color
	s.BaseOpacity = clamp01(old.BaseOpacity)
	s.PulseSpeed = old.PulseSpeed
	s.MovementSpeed = old.MovementSpeed
	s.ParallaxFactor = old.ParallaxFactor

	if f.cfg.EnableParallax {
		s.BaseY = s.Y + f.scroll*s.ParallaxFactor
	}

	if initial {
		s.State = Visible
		s.FadeProgress = 1
		s.Opacity = s.BaseOpacity
	} else {
		s.State = FadingIn
		s.FadeProgress = 0
		s.FadeStart = nowMs
		s.Opacity = 0
	}
	return s
}
