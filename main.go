package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/stardrift/internal/config"
	"github.com/olivier-w/stardrift/internal/persist"
)

var (
	// Global flags
	configPath string
	sessionID  string
	dbPath     string
	logPath    string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stardrift",
	Short: "A drifting parallax starfield for the terminal",
	Long: `stardrift draws a slowly drifting, twinkling starfield in braille cells.

The field is seeded from today's date, so every run on the same day starts
from the same sky. Scrolling shifts near stars more than far ones, and the
field is saved per session so a restart picks up where it left off.

Run without arguments to open the interactive view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		// The interactive view owns the terminal, so it only logs to a file.
		interactive := !cmd.HasParent()
		logger, err = newLogger(logPath, verbose, interactive)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "default", `session id ("new" for a fresh one)`)
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), `session database ("" keeps state in memory)`)
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "log file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(headlessCmd, serveCmd, initCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	updates := make(chan config.Config, 1)
	sess := &session{}
	defer sess.close()

	model := newStartupModel(openOptions{
		Config:  cfg,
		DBPath:  dbPath,
		Session: resolveSession(sessionID),
		Logger:  logger,
		Updates: updates,
	}, sess)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		return err
	})
	if _, err := os.Stat(configPath); err == nil {
		g.Go(func() error {
			watchConfig(gctx, configPath, logger, updates)
			return nil
		})
	}
	return g.Wait()
}

// watchConfig forwards reloads of path to updates until ctx is cancelled.
// A watcher that cannot start only disables hot reload.
func watchConfig(ctx context.Context, path string, logger *zap.Logger, updates chan<- config.Config) {
	err := config.Watch(ctx, path, logger.Named("config"), func(c config.Config) {
		select {
		case updates <- c:
		default:
			logger.Debug("dropping config reload, previous one still pending")
		}
	})
	if err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	}
}

// resolveSession maps the --session flag to a concrete id.
func resolveSession(id string) string {
	if id == "" || id == "new" {
		return uuid.NewString()
	}
	return id
}

// openStore opens the session store. An empty path keeps everything in
// memory for the lifetime of the process.
func openStore(path, session string) (persist.Store, error) {
	if path == "" {
		return persist.NewMemoryStore(), nil
	}
	store, err := persist.OpenSQLite(path, session)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "stardrift.yaml"
	}
	return filepath.Join(dir, "stardrift", "config.yaml")
}

func defaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stardrift", "sessions.db")
}
