package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverlaysOnlySetFields(t *testing.T) {
	base := Default()
	count := 3
	trails := true
	interval := time.Second

	got := Merge(base, Overrides{
		StarCount:    &count,
		EnableTrails: &trails,
		Persistence:  PersistenceOverrides{SaveInterval: &interval},
	})

	assert.Equal(t, 3, got.StarCount)
	assert.True(t, got.EnableTrails)
	assert.Equal(t, time.Second, got.Persistence.SaveInterval)
	assert.Equal(t, base.MaxFPS, got.MaxFPS)
	assert.Equal(t, base.Persistence.StorageKey, got.Persistence.StorageKey)
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := Default()
	got := Merge(base, Overrides{Palette: []string{"#ff0000"}})
	got.Palette[0] = "#000000"

	assert.Equal(t, Default().Palette, base.Palette)
	assert.Len(t, got.Palette, 1)
}

func TestMergeKeepsOutOfRangeValues(t *testing.T) {
	neg := -5
	got := Merge(Default(), Overrides{StarCount: &neg})
	assert.Equal(t, -5, got.StarCount)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().StarCount, cfg.StarCount)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stardrift.yml")
	body := "star_count: 42\nfade_duration: 3s\npalette: ['#112233']\npersistence:\n  enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv("STARDRIFT_MAX_FPS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.StarCount)
	assert.Equal(t, 3*time.Second, cfg.FadeDuration)
	assert.Equal(t, []string{"#112233"}, cfg.Palette)
	assert.False(t, cfg.Persistence.Enabled)
	assert.Equal(t, 12, cfg.MaxFPS)
	assert.Equal(t, Default().Persistence.MaxAge, cfg.Persistence.MaxAge)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stardrift.yml")
	want := Default()
	want.StarCount = 7
	want.EnableTrails = true
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestColorsFallsBackToWhite(t *testing.T) {
	cfg := Default()
	cfg.Palette = []string{"#ff0000", "nope"}
	cols := cfg.Colors()
	require.Len(t, cols, 2)
	assert.InDelta(t, 1.0, cols[0].R, 1e-9)
	assert.InDelta(t, 1.0, cols[1].G, 1e-9)
}

func TestFrameInterval(t *testing.T) {
	cfg := Default()
	cfg.MaxFPS = 20
	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval())
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval())
	cfg.MaxFPS = 0
	assert.Equal(t, time.Duration(0), cfg.FrameInterval())
	assert.Equal(t, time.Second/60, cfg.TickInterval())
	cfg.MaxFPS = -5
	assert.Equal(t, time.Second/60, cfg.TickInterval())
}

func TestWatchDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stardrift.yml")
	require.NoError(t, os.WriteFile(path, []byte("star_count: 1\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("star_count: 9\n"), 0644))

	select {
	case c := <-got:
		assert.Equal(t, 9, c.StarCount)
	case <-time.After(5 * time.Second):
		t.Fatal("expected reload")
	}

	cancel()
	require.NoError(t, <-done)
}
