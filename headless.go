package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/driver"
	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/render"
	"github.com/olivier-w/stardrift/internal/sched"
)

var (
	headlessFrames   int
	headlessCols     int
	headlessRows     int
	headlessRealtime bool
	headlessScroll   float64
)

var headlessCmd = &cobra.Command{
	Use:   "headless",
	Short: "Run the starfield without a UI and print the last frame",
	Long: `Runs a fixed number of frames on the scheduler and prints the final frame
with a summary line. Frames are stepped on a virtual clock unless --realtime
is given. Without --session a throwaway session id is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id := sessionID
		if !cmd.Flag("session").Changed {
			id = uuid.NewString()
		}
		var store persist.Store
		if cfg.Persistence.Enabled {
			s, err := openStore(dbPath, id)
			if err != nil {
				return err
			}
			defer s.Close()
			store = s
		}

		return runHeadless(ctx, headlessOptions{
			Config:   cfg,
			Store:    store,
			Logger:   logger,
			Frames:   headlessFrames,
			Cols:     headlessCols,
			Rows:     headlessRows,
			Realtime: headlessRealtime,
			Scroll:   headlessScroll,
			Start:    time.Now(),
			Profile:  render.DetectProfile(),
		}, cmd.OutOrStdout())
	},
}

func init() {
	headlessCmd.Flags().IntVarP(&headlessFrames, "frames", "n", 90, "frames to run")
	headlessCmd.Flags().IntVar(&headlessCols, "cols", 80, "output width in cells")
	headlessCmd.Flags().IntVar(&headlessRows, "rows", 24, "output height in cells")
	headlessCmd.Flags().BoolVar(&headlessRealtime, "realtime", false, "pace frames on the wall clock")
	headlessCmd.Flags().Float64Var(&headlessScroll, "scroll", 0, "scroll offset in pixels")
}

type headlessOptions struct {
	Config   config.Config
	Store    persist.Store
	Logger   *zap.Logger
	Frames   int
	Cols     int
	Rows     int
	Realtime bool
	Scroll   float64
	Start    time.Time
	Profile  termenv.Profile
}

// runHeadless drives the engine on its own loop. The loop outlives ctx so
// that an interrupted run still takes its final snapshot and prints the
// frame it reached.
func runHeadless(ctx context.Context, opts headlessOptions, out io.Writer) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loop := sched.NewLoop(64)
	canvas := render.NewCanvas(opts.Cols, opts.Rows, opts.Profile, render.NewRegistry())
	d := driver.New(driver.Options{
		Config:  opts.Config,
		Store:   opts.Store,
		Surface: canvas,
		Logger:  logger.Named("driver"),
	})

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	var g errgroup.Group
	g.Go(func() error { return loop.Run(loopCtx) })

	clock := opts.Start
	now := func() time.Time {
		if opts.Realtime {
			return time.Now()
		}
		return clock
	}
	interval := opts.Config.TickInterval()
	finished := make(chan struct{})

	var frames *sched.Timer
	loop.Do(func() {
		d.Init(canvas.Viewport(opts.Config.PixelRatio), now())
		if opts.Scroll > 0 {
			d.Scroll(opts.Scroll)
		}
		if opts.Frames <= 0 {
			close(finished)
			return
		}
		if opts.Realtime {
			frames = loop.Every(interval, func() {
				if d.Frame(time.Now()) && d.Stats().Frames >= opts.Frames {
					frames.Stop()
					close(finished)
				}
			})
			return
		}
		var step func()
		step = func() {
			if d.State() != driver.Running {
				return
			}
			clock = clock.Add(interval)
			d.Frame(clock)
			if d.Stats().Frames >= opts.Frames {
				close(finished)
				return
			}
			loop.Post(step)
		}
		loop.Post(step)
	})

	select {
	case <-finished:
	case <-ctx.Done():
		logger.Info("headless run interrupted")
	}

	var frame string
	var stats driver.Stats
	loop.Do(func() {
		if frames != nil {
			frames.Stop()
		}
		d.Stop(now())
		frame = canvas.String()
		stats = d.Stats()
	})
	stopLoop()
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(out, frame)
	fmt.Fprintf(out, "frames %d  drawn %d  fading %d  scroll %.0f  seed %s\n",
		stats.Frames, stats.Drawn, stats.Fading, stats.Scroll, stats.Strategy)
	return nil
}
