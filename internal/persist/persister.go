package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/olivier-w/stardrift/internal/config"
)

var (
	ErrNoSnapshot = errors.New("no snapshot stored")
	ErrVersion    = errors.New("snapshot version mismatch")
	ErrCount      = errors.New("snapshot star count mismatch")
	ErrStale      = errors.New("snapshot too old")
)

// Persister reads and writes snapshots through a Store. Writes are best
// effort: failures are logged and never returned.
type Persister struct {
	store  Store
	cfg    config.Persistence
	logger *zap.Logger
}

func NewPersister(store Store, cfg config.Persistence, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{store: store, cfg: cfg, logger: logger}
}

// Save writes the snapshot, the raw scroll offset and the last-visit time.
func (p *Persister) Save(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		p.logger.Warn("encoding snapshot failed", zap.Error(err))
		return
	}
	if err := p.store.Set(p.cfg.StorageKey, string(data)); err != nil {
		p.logger.Warn("saving snapshot failed", zap.String("key", p.cfg.StorageKey), zap.Error(err))
		return
	}
	if err := p.store.Set(p.cfg.ScrollKey, strconv.FormatFloat(snap.ScrollY, 'f', -1, 64)); err != nil {
		p.logger.Warn("saving scroll offset failed", zap.String("key", p.cfg.ScrollKey), zap.Error(err))
	}
	if err := p.store.Set(p.cfg.LastVisitKey, strconv.FormatInt(snap.Timestamp, 10)); err != nil {
		p.logger.Warn("saving last visit failed", zap.String("key", p.cfg.LastVisitKey), zap.Error(err))
	}
	p.logger.Debug("snapshot saved", zap.Int("stars", len(snap.Stars)), zap.Int("bytes", len(data)))
}

// Load returns the stored snapshot if it is usable for a field of count
// stars at time now, and nil otherwise.
func (p *Persister) Load(now time.Time, count int) *Snapshot {
	snap, err := p.Inspect(now, count)
	if err != nil {
		p.logger.Debug("no usable snapshot", zap.Error(err))
		return nil
	}
	return snap
}

// Inspect is Load with the rejection reason. A snapshot that parses but
// fails validation is returned alongside the error.
func (p *Persister) Inspect(now time.Time, count int) (*Snapshot, error) {
	raw, ok, err := p.store.Get(p.cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if !ok || raw == "" {
		return nil, ErrNoSnapshot
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SchemaVersion {
		return &snap, fmt.Errorf("%w: got %d, want %d", ErrVersion, snap.Version, SchemaVersion)
	}
	if len(snap.Stars) != max(count, 0) {
		return &snap, fmt.Errorf("%w: got %d, want %d", ErrCount, len(snap.Stars), count)
	}
	if p.cfg.MaxAge > 0 && snap.Age(now) > p.cfg.MaxAge {
		return &snap, fmt.Errorf("%w: %s", ErrStale, snap.Age(now).Round(time.Second))
	}
	return &snap, nil
}

// LastScroll returns the stored scroll offset.
func (p *Persister) LastScroll() (float64, bool) {
	raw, ok, err := p.store.Get(p.cfg.ScrollKey)
	if err != nil || !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.logger.Debug("ignoring malformed scroll offset", zap.String("value", raw))
		return 0, false
	}
	return v, true
}

// LastVisit returns the time of the last save.
func (p *Persister) LastVisit() (time.Time, bool) {
	raw, ok, err := p.store.Get(p.cfg.LastVisitKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Clear deletes everything the persister writes.
func (p *Persister) Clear() error {
	var errs []error
	for _, key := range []string{p.cfg.StorageKey, p.cfg.ScrollKey, p.cfg.LastVisitKey} {
		if err := p.store.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
