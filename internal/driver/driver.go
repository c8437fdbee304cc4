// Package driver runs the starfield: it picks the seed strategy, paces
// frames, advances the field, paints it and keeps the session snapshot
// current. Hosts call into it from a single goroutine.
package driver

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/field"
	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/render"
)

// Lifecycle is the driver state. There is no paused state: hidden hosts
// keep ticking.
type Lifecycle uint8

const (
	Uninitialized Lifecycle = iota
	Running
	Stopped
)

func (l Lifecycle) String() string {
	switch l {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

// frameSlack absorbs host timer jitter when pacing frames.
const frameSlack = time.Millisecond

// Stats summarizes the most recent frame.
type Stats struct {
	Frames   int
	Drawn    int
	Fading   int
	Saves    int
	Scroll   float64
	Strategy field.Strategy
	Delta    time.Duration
}

// Options configures a Driver. Store and Surface may be nil: without a
// store nothing is persisted, without a surface nothing is painted.
type Options struct {
	Config  config.Config
	Store   persist.Store
	Surface render.Surface
	Logger  *zap.Logger
	Rand    *rand.Rand
}

type Driver struct {
	cfg       config.Config
	logger    *zap.Logger
	store     persist.Store
	persister *persist.Persister
	renderer  *render.Renderer
	surface   render.Surface
	rnd       *rand.Rand

	field     *field.Field
	state     Lifecycle
	lastFrame time.Time
	animTime  time.Duration
	lastSave  time.Duration
	scroll    scrollSpring
	stats     Stats
}

func New(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rnd := opts.Rand
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	d := &Driver{
		logger:  logger,
		store:   opts.Store,
		surface: opts.Surface,
		rnd:     rnd,
	}
	d.applyConfig(opts.Config)
	d.scroll = newScrollSpring(d.cfg.MaxFPS, d.cfg.ScrollFrequency, d.cfg.ScrollDamping)
	return d
}

func (d *Driver) applyConfig(cfg config.Config) {
	d.cfg = cfg
	d.renderer = render.New(cfg)
	d.persister = nil
	if cfg.Persistence.Enabled && d.store != nil {
		d.persister = persist.NewPersister(d.store, cfg.Persistence, d.logger)
	}
}

// Init builds the field for viewport vp: a restored snapshot when one is
// usable, otherwise the configured seed strategy. It is a no-op unless the
// driver is uninitialized.
func (d *Driver) Init(vp field.Viewport, now time.Time) {
	if d.state != Uninitialized {
		return
	}

	var snap *persist.Snapshot
	if d.persister != nil {
		snap = d.persister.Load(now, d.cfg.StarCount)
	}
	if snap != nil {
		stars := persist.Restore(snap, vp)
		d.field = field.New(d.cfg, stars, vp, field.StrategyRestored, d.rnd, now)
		d.scroll.jump(snap.ScrollY)
	} else {
		d.field = field.Seed(d.cfg, vp, d.rnd, now)
		if d.persister != nil {
			if y, ok := d.persister.LastScroll(); ok {
				d.scroll.jump(y)
			}
		}
	}

	d.state = Running
	d.lastFrame = time.Time{}
	d.stats.Strategy = d.field.Strategy()
	d.logger.Info("starfield initialized",
		zap.String("strategy", d.field.Strategy().String()),
		zap.Int("stars", d.field.Len()),
		zap.Float64("width", vp.Width),
		zap.Float64("height", vp.Height))
}

// Frame advances and paints one frame if the frame interval has elapsed
// since the last one. It reports whether a frame was produced.
func (d *Driver) Frame(now time.Time) bool {
	if d.state != Running {
		return false
	}

	var dt time.Duration
	if !d.lastFrame.IsZero() {
		dt = now.Sub(d.lastFrame)
		if dt < d.cfg.FrameInterval()-frameSlack {
			return false
		}
	}
	if dt < 0 {
		dt = 0
	}
	if d.cfg.MaxDeltaTime > 0 && dt > d.cfg.MaxDeltaTime {
		dt = d.cfg.MaxDeltaTime
	}
	d.lastFrame = now

	scroll := d.scroll.step()
	d.field.Update(now, dt.Seconds(), scroll)
	drawn := d.renderer.Draw(d.surface, d.field)

	d.animTime += dt
	d.stats.Frames++
	d.stats.Drawn = drawn
	d.stats.Fading = d.field.Fading()
	d.stats.Scroll = scroll
	d.stats.Delta = dt
	d.stats.Strategy = d.field.Strategy()

	if d.persister != nil && d.cfg.Persistence.SaveInterval > 0 &&
		d.animTime-d.lastSave >= d.cfg.Persistence.SaveInterval {
		d.save(now)
		d.lastSave = d.animTime
	}
	return true
}

// Resize adapts the field to a new viewport. Hosts debounce resize events
// before calling it.
func (d *Driver) Resize(vp field.Viewport, now time.Time) {
	if d.state != Running {
		return
	}
	regenerated := d.field.Resize(vp, now)
	d.stats.Strategy = d.field.Strategy()
	d.logger.Debug("viewport resized",
		zap.Float64("width", vp.Width),
		zap.Float64("height", vp.Height),
		zap.Bool("regenerated", regenerated))
}

// Scroll sets the scroll target in pixels. Offsets below zero are clamped.
func (d *Driver) Scroll(offset float64) {
	d.scroll.target = max(offset, 0)
}

// ScrollBy moves the scroll target by delta pixels.
func (d *Driver) ScrollBy(delta float64) {
	d.Scroll(d.scroll.target + delta)
}

// ScrollTarget is the offset the scroll spring is heading to.
func (d *Driver) ScrollTarget() float64 { return d.scroll.target }

// VisibilityChanged records a host visibility change. Only a save happens;
// the loop keeps running.
func (d *Driver) VisibilityChanged(hidden bool, now time.Time) {
	if d.state != Running {
		return
	}
	d.logger.Debug("visibility changed", zap.Bool("hidden", hidden))
	d.save(now)
}

// Stop takes a final snapshot and stops the driver.
func (d *Driver) Stop(now time.Time) {
	if d.state != Running {
		d.state = Stopped
		return
	}
	d.save(now)
	d.state = Stopped
	d.logger.Info("starfield stopped", zap.Int("frames", d.stats.Frames))
}

// SetConfig swaps the configuration on a live driver.
func (d *Driver) SetConfig(cfg config.Config, now time.Time) {
	d.applyConfig(cfg)
	d.scroll.retune(cfg.MaxFPS, cfg.ScrollFrequency, cfg.ScrollDamping)
	if d.field != nil {
		d.field.SetConfig(cfg, now)
	}
}

// SetSurface replaces the drawing surface.
func (d *Driver) SetSurface(s render.Surface) { d.surface = s }

// Snapshot captures the current field. It reports false before Init.
func (d *Driver) Snapshot(now time.Time) (persist.Snapshot, bool) {
	if d.field == nil {
		return persist.Snapshot{}, false
	}
	return persist.Capture(d.field, now), true
}

func (d *Driver) save(now time.Time) {
	if d.persister == nil || d.field == nil {
		return
	}
	d.persister.Save(persist.Capture(d.field, now))
	d.stats.Saves++
}

func (d *Driver) State() Lifecycle { return d.state }

func (d *Driver) Stats() Stats { return d.stats }

func (d *Driver) Config() config.Config { return d.cfg }

func (d *Driver) Field() *field.Field { return d.field }

// AnimationTime is the sum of capped frame deltas since Init.
func (d *Driver) AnimationTime() time.Duration { return d.animTime }
