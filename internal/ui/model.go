// Package ui is the interactive terminal host for the starfield.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/driver"
	"github.com/olivier-w/stardrift/internal/render"
)

const statusTTL = 4 * time.Second

// Options configures a Model.
type Options struct {
	Driver  *driver.Driver
	Canvas  *render.Canvas
	Logger  *zap.Logger
	Updates <-chan config.Config
	Now     func() time.Time
}

// Model is the Bubbletea model for the stardrift TUI.
type Model struct {
	driver  *driver.Driver
	canvas  *render.Canvas
	logger  *zap.Logger
	updates <-chan config.Config
	now     func() time.Time

	width     int
	height    int
	resizeSeq int
	showHUD   bool
	quitting  bool

	frame     string
	fps       float64
	lastFrame time.Time
	started   time.Time

	status   string
	statusAt time.Time
}

func New(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		driver:  opts.Driver,
		canvas:  opts.Canvas,
		logger:  logger,
		updates: opts.Updates,
		now:     now,
		started: now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		frameCmd(m.driver.Config().TickInterval()),
		waitForConfig(m.updates),
		tea.SetWindowTitle("stardrift"),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.driver.State() == driver.Uninitialized {
			m.applySize()
			return m, nil
		}
		m.resizeSeq++
		return m, resizeCmd(m.driver.Config().ResizeDebounce, m.resizeSeq)

	case resizeMsg:
		if msg.seq == m.resizeSeq {
			m.applySize()
		}
		return m, nil

	case frameMsg:
		if m.quitting {
			return m, nil
		}
		t := time.Time(msg)
		if m.driver.Frame(t) {
			m.frame = m.canvas.String()
			m.trackFPS(t)
		}
		if m.status != "" && t.Sub(m.statusAt) > statusTTL {
			m.status = ""
		}
		return m, frameCmd(m.driver.Config().TickInterval())

	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			m.driver.Stop(m.now())
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.driver.ScrollBy(-m.driver.Config().ScrollStep)
		case tea.MouseButtonWheelDown:
			m.driver.ScrollBy(m.driver.Config().ScrollStep)
		}
		return m, nil

	case tea.FocusMsg:
		m.driver.VisibilityChanged(false, m.now())
		return m, nil

	case tea.BlurMsg:
		m.driver.VisibilityChanged(true, m.now())
		return m, nil

	case ConfigReloadedMsg:
		ratio := m.driver.Config().PixelRatio
		m.driver.SetConfig(msg.Config, m.now())
		if msg.Config.PixelRatio != ratio {
			m.applySize()
		}
		m.setStatus("config reloaded")
		m.logger.Info("config reloaded", zap.Int("stars", msg.Config.StarCount))
		return m, waitForConfig(m.updates)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cfg := m.driver.Config()
	page := float64(m.height) * 4
	switch msg.String() {
	case "up", "k":
		m.driver.ScrollBy(-cfg.ScrollStep)
	case "down", "j":
		m.driver.ScrollBy(cfg.ScrollStep)
	case "pgup":
		m.driver.ScrollBy(-page)
	case "pgdown", " ":
		m.driver.ScrollBy(page)
	case "home", "g":
		m.driver.Scroll(0)
	case "h":
		m.showHUD = !m.showHUD
		m.applySize()
	case "t":
		cfg.EnableTrails = !cfg.EnableTrails
		m.driver.SetConfig(cfg, m.now())
		m.setStatus(toggleStatus("trails", cfg.EnableTrails))
	case "p":
		cfg.EnableParallax = !cfg.EnableParallax
		m.driver.SetConfig(cfg, m.now())
		m.setStatus(toggleStatus("parallax", cfg.EnableParallax))
	}
	return m, nil
}

func toggleStatus(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusAt = m.now()
}

// applySize fits the canvas to the window and hands the matching viewport
// to the driver.
func (m *Model) applySize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	rows := m.height
	if m.showHUD {
		rows--
	}
	m.canvas.Resize(m.width, max(rows, 1))
	vp := m.canvas.Viewport(m.driver.Config().PixelRatio)

	now := m.now()
	if m.driver.State() == driver.Uninitialized {
		m.driver.Init(vp, now)
		return
	}
	m.driver.Resize(vp, now)
}

func (m *Model) trackFPS(t time.Time) {
	if !m.lastFrame.IsZero() {
		if dt := t.Sub(m.lastFrame).Seconds(); dt > 0 {
			inst := 1 / dt
			if m.fps == 0 {
				m.fps = inst
			} else {
				m.fps = m.fps*0.9 + inst*0.1
			}
		}
	}
	m.lastFrame = t
}

func (m Model) View() string {
	if m.quitting || m.driver.State() != driver.Running {
		return ""
	}
	if !m.showHUD {
		return m.frame
	}
	stars := 0
	if f := m.driver.Field(); f != nil {
		stars = f.Len()
	}
	hud := renderHUD(m.driver.Stats(), m.fps, stars, m.now().Sub(m.started), m.status)
	return m.frame + "\n" + lipgloss.NewStyle().MaxWidth(m.width).Render(hud)
}
