package persist

import (
	"time"

	"github.com/olivier-w/stardrift/internal/field"
)

// SchemaVersion is bumped whenever the snapshot layout changes; older
// snapshots are ignored rather than migrated.
const SchemaVersion = 1

// Snapshot is the stored form of a field.
type Snapshot struct {
	Version   int            `json:"version"`
	Timestamp int64          `json:"timestamp"` // unix ms
	DateSeed  int64          `json:"dateSeed"`
	ScrollY   float64        `json:"scrollY"`
	Viewport  field.Viewport `json:"viewport"`
	Stars     []field.Star   `json:"stars"`
}

// Capture copies the current state of f.
func Capture(f *field.Field, now time.Time) Snapshot {
	return Snapshot{
		Version:   SchemaVersion,
		Timestamp: now.UnixMilli(),
		DateSeed:  field.DateSeed(now),
		ScrollY:   f.Scroll(),
		Viewport:  f.Viewport(),
		Stars:     append([]field.Star(nil), f.Stars()...),
	}
}

// Age is the time elapsed since the snapshot was written.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.Timestamp))
}

// Restore rehydrates the stored stars for viewport vp, scaling positions by
// the ratio of the new to the stored viewport.
func Restore(s *Snapshot, vp field.Viewport) []field.Star {
	sx, sy := 1.0, 1.0
	if s.Viewport.Width > 0 {
		sx = vp.Width / s.Viewport.Width
	}
	if s.Viewport.Height > 0 {
		sy = vp.Height / s.Viewport.Height
	}
	stars := make([]field.Star, len(s.Stars))
	for i, st := range s.Stars {
		st.X *= sx
		st.Y *= sy
		st.BaseY *= sy
		st.PrevX, st.PrevY = st.X, st.Y
		st.Velocity = 0
		stars[i] = st
	}
	return stars
}
