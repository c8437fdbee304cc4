// Package server streams rendered starfield frames to websocket clients.
// The engine lives on a sched.Loop; HTTP handlers post work into it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/driver"
	"github.com/olivier-w/stardrift/internal/field"
	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/render"
	"github.com/olivier-w/stardrift/internal/sched"
)

const (
	defaultCols = 80
	defaultRows = 24
	maxCells    = 400
)

// Options configures a Server.
type Options struct {
	Config  config.Config
	Store   persist.Store
	Logger  *zap.Logger
	Cols    int
	Rows    int
	Profile termenv.Profile
}

type Server struct {
	cfg    config.Config
	logger *zap.Logger
	loop   *sched.Loop
	driver *driver.Driver
	canvas *render.Canvas
	resize *sched.Debouncer
	router chi.Router

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	canvas := render.NewCanvas(cols, rows, opts.Profile, render.NewRegistry())
	loop := sched.NewLoop(256)

	s := &Server{
		cfg:    opts.Config,
		logger: logger,
		loop:   loop,
		canvas: canvas,
		resize: sched.NewDebouncer(loop, opts.Config.ResizeDebounce),
		driver: driver.New(driver.Options{
			Config:  opts.Config,
			Store:   opts.Store,
			Surface: canvas,
			Logger:  logger.Named("driver"),
		}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run drives the engine until ctx is cancelled, then takes a final
// snapshot and disconnects every client.
func (s *Server) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopErr := make(chan error, 1)
	go func() { loopErr <- s.loop.Run(loopCtx) }()

	var frames *sched.Timer
	s.loop.Do(func() {
		s.driver.Init(s.viewport(), time.Now())
		frames = s.loop.Every(s.cfg.TickInterval(), s.tick)
	})

	<-ctx.Done()

	s.loop.Do(func() {
		frames.Stop()
		s.resize.Stop()
		s.driver.Stop(time.Now())
	})
	s.closeClients()
	s.wg.Wait()

	stopLoop()
	return <-loopErr
}

func (s *Server) viewport() field.Viewport {
	return s.canvas.Viewport(s.cfg.PixelRatio)
}

func (s *Server) tick() {
	if !s.driver.Frame(time.Now()) {
		return
	}
	s.broadcast(s.canvas.String())
}

func (s *Server) applyResize(cols, rows int) {
	cols = min(max(cols, 1), maxCells)
	rows = min(max(rows, 1), maxCells)
	s.resize.Trigger(func() {
		s.canvas.Resize(cols, rows)
		s.driver.Resize(s.viewport(), time.Now())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var state driver.Lifecycle
	var stats driver.Stats
	if !s.loop.Do(func() {
		state = s.driver.State()
		stats = s.driver.Stats()
	}) {
		http.Error(w, "engine stopped", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"state":   state.String(),
		"frames":  stats.Frames,
		"clients": s.clientCount(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap persist.Snapshot
	var ok bool
	s.loop.Do(func() {
		snap, ok = s.driver.Snapshot(time.Now())
	})
	if !ok {
		http.Error(w, "starfield not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
