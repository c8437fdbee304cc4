package main

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/driver"
	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/render"
	"github.com/olivier-w/stardrift/internal/ui"
)

type openOptions struct {
	Config  config.Config
	DBPath  string
	Session string
	Logger  *zap.Logger
	Updates <-chan config.Config
}

// session holds what the interactive run must release on exit.
type session struct {
	mu    sync.Mutex
	store persist.Store
}

func (s *session) set(store persist.Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

// buildStarfieldModel opens the session store and wires the driver, canvas
// and view together.
func buildStarfieldModel(opts openOptions, sess *session) (ui.Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var store persist.Store
	if opts.Config.Persistence.Enabled {
		s, err := openStore(opts.DBPath, opts.Session)
		if err != nil {
			return ui.Model{}, err
		}
		store = s
		sess.set(s)
		pruneSessions(s, opts.Config.Persistence.MaxAge, logger)
	}
	logger.Info("session opened", zap.String("session", opts.Session), zap.String("db", opts.DBPath))

	canvas := render.NewCanvas(1, 1, render.DetectProfile(), render.NewRegistry())
	d := driver.New(driver.Options{
		Config:  opts.Config,
		Store:   store,
		Surface: canvas,
		Logger:  logger.Named("driver"),
	})
	return ui.New(ui.Options{
		Driver:  d,
		Canvas:  canvas,
		Logger:  logger.Named("ui"),
		Updates: opts.Updates,
	}), nil
}

// pruneSessions drops sessions that have not been written for longer than
// a snapshot stays usable.
func pruneSessions(store persist.Store, maxAge time.Duration, logger *zap.Logger) {
	s, ok := store.(*persist.SQLiteStore)
	if !ok || maxAge <= 0 {
		return
	}
	n, err := s.Prune(time.Now().Add(-maxAge))
	if err != nil {
		logger.Warn("pruning sessions failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Debug("pruned stale session rows", zap.Int64("rows", n))
	}
}
