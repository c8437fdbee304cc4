package driver

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/field"
	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/render"
)

var (
	t0 = time.Date(2026, time.June, 9, 22, 0, 0, 0, time.Local)
	vp = field.Viewport{Width: 800, Height: 600, PixelRatio: 1}
)

func newDriver(t *testing.T, cfg config.Config, store persist.Store) *Driver {
	t.Helper()
	return New(Options{
		Config: cfg,
		Store:  store,
		Rand:   rand.New(rand.NewPCG(7, 8)),
	})
}

func smallConfig(count int) config.Config {
	cfg := config.Default()
	cfg.StarCount = count
	return cfg
}

func TestFrameIgnoredOutsideRunning(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	assert.Equal(t, Uninitialized, d.State())
	assert.False(t, d.Frame(t0))

	d.Init(vp, t0)
	require.Equal(t, Running, d.State())
	assert.True(t, d.Frame(t0))

	d.Stop(t0.Add(time.Second))
	assert.Equal(t, Stopped, d.State())
	assert.False(t, d.Frame(t0.Add(2*time.Second)))
}

func TestInitTwiceIsNoop(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Init(vp, t0)
	f := d.Field()
	d.Init(field.Viewport{Width: 100, Height: 100, PixelRatio: 1}, t0)
	assert.Same(t, f, d.Field())
	assert.Equal(t, vp, d.Field().Viewport())
}

func TestInitWithoutSnapshotUsesDateSeed(t *testing.T) {
	d := newDriver(t, smallConfig(25), persist.NewMemoryStore())
	d.Init(vp, t0)
	assert.Equal(t, field.StrategyDateSeeded, d.Field().Strategy())
	assert.Equal(t, 25, d.Field().Len())
}

func TestInitWithMismatchedSnapshotFallsBack(t *testing.T) {
	store := persist.NewMemoryStore()

	old := newDriver(t, smallConfig(10), store)
	old.Init(vp, t0)
	old.Frame(t0)
	old.Stop(t0.Add(time.Second))

	d := newDriver(t, smallConfig(150), store)
	d.Init(vp, t0.Add(time.Minute))
	assert.Equal(t, field.StrategyDateSeeded, d.Field().Strategy())
	assert.Equal(t, 150, d.Field().Len())
	require.NoError(t, d.Field().Check())
}

func TestStopThenInitRestoresSession(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := smallConfig(20)

	first := newDriver(t, cfg, store)
	first.Init(vp, t0)
	first.Scroll(120)
	now := t0
	for range 20 {
		now = now.Add(40 * time.Millisecond)
		first.Frame(now)
	}
	first.Stop(now)

	second := newDriver(t, cfg, store)
	wide := field.Viewport{Width: 1600, Height: 1200, PixelRatio: 1}
	second.Init(wide, now.Add(time.Second))

	assert.Equal(t, field.StrategyRestored, second.Field().Strategy())
	assert.Equal(t, 20, second.Field().Len())
	assert.Equal(t, wide, second.Field().Viewport())
	assert.Equal(t, first.Field().Scroll(), second.ScrollTarget())
}

func TestPersistenceDisabledNeverSaves(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := smallConfig(10)
	cfg.Persistence.Enabled = false

	d := newDriver(t, cfg, store)
	d.Init(vp, t0)
	d.Frame(t0)
	d.VisibilityChanged(true, t0)
	d.Stop(t0)

	assert.Zero(t, d.Stats().Saves)
	_, ok, err := store.Get(cfg.Persistence.StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFramePacing(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Init(vp, t0)

	require.True(t, d.Frame(t0))
	assert.False(t, d.Frame(t0.Add(10*time.Millisecond)), "frame inside the interval")
	assert.True(t, d.Frame(t0.Add(34*time.Millisecond)))
	assert.Equal(t, 2, d.Stats().Frames)
}

func TestDeltaIsCapped(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Init(vp, t0)
	d.Frame(t0)
	d.Frame(t0.Add(10 * time.Second))

	assert.Equal(t, d.Config().MaxDeltaTime, d.Stats().Delta)
	assert.Equal(t, d.Config().MaxDeltaTime, d.AnimationTime())
}

func TestPeriodicSaveFollowsAnimationTime(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := smallConfig(10)
	cfg.Persistence.SaveInterval = 100 * time.Millisecond

	d := newDriver(t, cfg, store)
	d.Init(vp, t0)
	d.Frame(t0)
	d.Frame(t0.Add(50 * time.Millisecond))
	assert.Zero(t, d.Stats().Saves)

	// A long stall only advances animation time by the delta cap.
	d.Frame(t0.Add(time.Hour))
	require.Equal(t, 1, d.Stats().Saves)

	_, ok, err := store.Get(cfg.Persistence.StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVisibilityChangeSavesAndKeepsRunning(t *testing.T) {
	d := newDriver(t, smallConfig(10), persist.NewMemoryStore())
	d.Init(vp, t0)
	d.VisibilityChanged(true, t0)
	d.VisibilityChanged(false, t0)

	assert.Equal(t, 2, d.Stats().Saves)
	assert.Equal(t, Running, d.State())
	assert.True(t, d.Frame(t0))
}

func TestScrollSpringSettlesOnTarget(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Init(vp, t0)
	d.ScrollBy(100)

	now := t0
	d.Frame(now)
	first := d.Stats().Scroll
	assert.Less(t, first, 100.0)
	for range 120 {
		now = now.Add(34 * time.Millisecond)
		d.Frame(now)
	}
	assert.InDelta(t, 100, d.Stats().Scroll, 1)
	assert.InDelta(t, 100, d.Field().Scroll(), 1)
}

func TestScrollClampsAtZero(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Scroll(30)
	d.ScrollBy(-50)
	assert.Zero(t, d.ScrollTarget())
}

func TestResize(t *testing.T) {
	d := newDriver(t, smallConfig(30), nil)
	d.Init(vp, t0)
	seeds := make([]int64, 0, 30)
	for _, s := range d.Field().Stars() {
		seeds = append(seeds, s.OriginalSeed)
	}

	d.Resize(field.Viewport{Width: 850, Height: 630, PixelRatio: 1}, t0)
	for i, s := range d.Field().Stars() {
		assert.Equal(t, seeds[i], s.OriginalSeed)
	}

	d.Resize(field.Viewport{Width: 1600, Height: 900, PixelRatio: 1}, t0)
	assert.Equal(t, 1600.0, d.Field().Viewport().Width)
	require.NoError(t, d.Field().Check())
}

func TestFramePaintsSurface(t *testing.T) {
	canvas := render.NewCanvas(80, 24, termenv.Ascii, render.NewRegistry())
	d := New(Options{
		Config:  smallConfig(60),
		Surface: canvas,
		Rand:    rand.New(rand.NewPCG(1, 1)),
	})
	d.Init(field.Viewport{Width: 160, Height: 96, PixelRatio: 1}, t0)
	require.True(t, d.Frame(t0))

	assert.Positive(t, d.Stats().Drawn)
	assert.NotEmpty(t, canvas.String())
}

func TestSetConfigChangesCount(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	d.Init(vp, t0)
	d.SetConfig(smallConfig(40), t0)
	assert.Equal(t, 40, d.Field().Len())
	assert.Equal(t, 40, d.Config().StarCount)
}

func TestSnapshotBeforeInit(t *testing.T) {
	d := newDriver(t, smallConfig(10), nil)
	_, ok := d.Snapshot(t0)
	assert.False(t, ok)

	d.Init(vp, t0)
	snap, ok := d.Snapshot(t0)
	require.True(t, ok)
	assert.Equal(t, persist.SchemaVersion, snap.Version)
	assert.Len(t, snap.Stars, 10)
}
