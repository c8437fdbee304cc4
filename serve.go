package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/stardrift/internal/persist"
	"github.com/olivier-w/stardrift/internal/server"
)

var (
	serveAddr string
	serveCols int
	serveRows int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream rendered frames over websocket",
	Long: `Runs one starfield and streams every frame as text to clients on /ws.

Clients may send {"scroll": n} to scroll and {"resize": {"width": w, "height": h}}
to change the frame size in cells. /snapshot returns the current field and
/healthz the engine state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store persist.Store
		if cfg.Persistence.Enabled {
			s, err := openStore(dbPath, resolveSession(sessionID))
			if err != nil {
				return err
			}
			defer s.Close()
			store = s
		}

		srv := server.New(server.Options{
			Config:  cfg,
			Store:   store,
			Logger:  logger.Named("server"),
			Cols:    serveCols,
			Rows:    serveRows,
			Profile: termenv.TrueColor,
		})
		httpSrv := &http.Server{
			Addr:              serveAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", serveAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&serveCols, "cols", 80, "initial frame width in cells")
	serveCmd.Flags().IntVar(&serveRows, "rows", 24, "initial frame height in cells")
}
