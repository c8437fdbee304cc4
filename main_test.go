package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/field"
	"github.com/olivier-w/stardrift/internal/persist"
)

var testStart = time.Date(2026, time.February, 3, 20, 0, 0, 0, time.Local)

func TestRunHeadlessPrintsFrameAndStats(t *testing.T) {
	c := config.Default()
	c.StarCount = 50
	store := persist.NewMemoryStore()

	var out bytes.Buffer
	err := runHeadless(context.Background(), headlessOptions{
		Config:  c,
		Store:   store,
		Frames:  12,
		Cols:    30,
		Rows:    8,
		Scroll:  60,
		Start:   testStart,
		Profile: termenv.Ascii,
	}, &out)
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 8 frame rows and a summary, got %d lines", len(lines))
	}
	summary := lines[len(lines)-1]
	if !strings.HasPrefix(summary, "frames 12 ") {
		t.Fatalf("unexpected summary %q", summary)
	}
	if !strings.Contains(summary, "seed date-seeded") {
		t.Fatalf("expected date-seeded strategy, got %q", summary)
	}

	// The final snapshot lets the next run restore the same field.
	if snap := persist.NewPersister(store, c.Persistence, nil).Load(testStart.Add(time.Minute), 50); snap == nil {
		t.Fatal("expected a stored snapshot after the run")
	}

	out.Reset()
	err = runHeadless(context.Background(), headlessOptions{
		Config: c, Store: store, Frames: 1, Cols: 30, Rows: 8,
		Start: testStart.Add(time.Minute), Profile: termenv.Ascii,
	}, &out)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out.String(), "seed restored") {
		t.Fatalf("expected restored strategy, got %q", out.String())
	}
}

func TestRunHeadlessZeroFrames(t *testing.T) {
	var out bytes.Buffer
	err := runHeadless(context.Background(), headlessOptions{
		Config: config.Default(), Frames: 0, Cols: 10, Rows: 2,
		Start: testStart, Profile: termenv.Ascii,
	}, &out)
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	if !strings.Contains(out.String(), "frames 0 ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunHeadlessUncappedRealtimeRuns(t *testing.T) {
	c := config.Default()
	c.StarCount = 20
	c.MaxFPS = 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runHeadless(ctx, headlessOptions{
		Config: c, Frames: 3, Cols: 10, Rows: 3, Realtime: true,
		Start: time.Now(), Profile: termenv.Ascii,
	}, &out)
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("expected the run to finish before the deadline")
	}
	if !strings.Contains(out.String(), "frames 3 ") {
		t.Fatalf("expected 3 frames, got %q", out.String())
	}
}

func TestRunHeadlessInterruptedStillSaves(t *testing.T) {
	c := config.Default()
	c.StarCount = 40
	c.MaxFPS = 30
	c.Persistence.SaveInterval = time.Hour
	store := persist.NewMemoryStore()
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := runHeadless(ctx, headlessOptions{
		Config: c, Store: store, Frames: 1 << 20, Cols: 20, Rows: 5, Realtime: true,
		Start: time.Now(), Profile: termenv.Ascii,
	}, &out)
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}

	if _, ok, _ := store.Get(c.Persistence.StorageKey); !ok {
		t.Fatal("expected the final snapshot to be written on interrupt")
	}
	if snap := persist.NewPersister(store, c.Persistence, nil).Load(time.Now(), 40); snap == nil {
		t.Fatal("expected the final snapshot to be restorable")
	}
	summary := out.String()
	if strings.Contains(summary, "frames 0 ") || !strings.Contains(summary, "seed date-seeded") {
		t.Fatalf("expected the reached frame and stats, got %q", summary)
	}
}

func TestSnapshotMarkdown(t *testing.T) {
	snap := &persist.Snapshot{
		Version:   persist.SchemaVersion,
		Timestamp: testStart.UnixMilli(),
		DateSeed:  20260203,
		ScrollY:   240,
		Viewport:  field.Viewport{Width: 800, Height: 600, PixelRatio: 2},
		Stars: []field.Star{
			{State: field.Visible},
			{State: field.FadingOut},
			{State: field.FadingOut},
		},
	}
	md := snapshotMarkdown("abc", snap, persist.ErrCount, time.Time{}, testStart.Add(90*time.Second))

	for _, want := range []string{
		"# Session `abc`",
		"| Date seed | 20260203 |",
		"| Scroll | 240 px |",
		"| Viewport | 800 x 600 @2 |",
		"(1m30s ago)",
		"| fading-out | 2 |",
		"no: " + persist.ErrCount.Error(),
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "Last visit") {
		t.Error("expected no last visit row for a zero time")
	}
}

func TestSessionsMarkdown(t *testing.T) {
	if got := sessionsMarkdown(nil, testStart); got != "No stored sessions.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	md := sessionsMarkdown([]persist.SessionInfo{{ID: "s1", Items: 3, UpdatedAt: testStart}}, testStart.Add(time.Minute))
	if !strings.Contains(md, "| `s1` | 3 | 1m0s ago |") {
		t.Fatalf("unexpected table:\n%s", md)
	}
}

func TestWatchConfigFailureOnlyWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	updates := make(chan config.Config, 1)
	path := t.TempDir() + "/missing/config.yaml"

	watchConfig(context.Background(), path, zap.New(core), updates)

	if logs.FilterMessage("config hot reload disabled").Len() != 1 {
		t.Fatalf("expected a warning, got %v", logs.All())
	}
	if len(updates) != 0 {
		t.Fatal("expected no reloads")
	}
}

func TestResolveSession(t *testing.T) {
	if got := resolveSession("mine"); got != "mine" {
		t.Fatalf("expected explicit id to be kept, got %q", got)
	}
	a, b := resolveSession("new"), resolveSession("")
	if a == b || len(a) != 36 {
		t.Fatalf("expected fresh uuids, got %q and %q", a, b)
	}
}

func TestOpenStoreInMemory(t *testing.T) {
	s, err := openStore("", "x")
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if _, ok := s.(*persist.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}
}

func TestNewLoggerInteractiveWithoutFileIsNop(t *testing.T) {
	l, err := newLogger("", false, true)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected a no-op logger")
	}

	path := t.TempDir() + "/logs/stardrift.log"
	l, err = newLogger(path, true, true)
	if err != nil {
		t.Fatalf("newLogger with file: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level with verbose")
	}
	_ = l.Sync()
}
