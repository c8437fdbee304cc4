package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/olivier-w/stardrift/internal/field"
	"github.com/olivier-w/stardrift/internal/persist"
)

var snapshotRaw bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or clear stored session snapshots",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Describe the snapshot stored for the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p := persist.NewPersister(store, cfg.Persistence, logger)
		now := time.Now()
		snap, inspectErr := p.Inspect(now, cfg.StarCount)
		if snap == nil {
			if errors.Is(inspectErr, persist.ErrNoSnapshot) {
				fmt.Fprintf(cmd.OutOrStdout(), "No snapshot stored for session %q.\n", sessionID)
				return nil
			}
			return inspectErr
		}

		if snapshotRaw {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		lastVisit, _ := p.LastVisit()
		md := snapshotMarkdown(sessionID, snap, inspectErr, lastVisit, now)
		out, err := renderMarkdown(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the snapshot stored for the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := persist.NewPersister(store, cfg.Persistence, logger).Clear(); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %q.\n", sessionID)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.Sessions()
		if err != nil {
			return err
		}
		out, err := renderMarkdown(sessionsMarkdown(sessions, time.Now()))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	snapshotShowCmd.Flags().BoolVar(&snapshotRaw, "raw", false, "print the stored JSON")
	snapshotCmd.AddCommand(snapshotShowCmd, snapshotClearCmd, snapshotListCmd)
}

func openSnapshotStore() (*persist.SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("no session database configured (see --db)")
	}
	store, err := persist.OpenSQLite(dbPath, sessionID)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}

func snapshotMarkdown(session string, snap *persist.Snapshot, problem error, lastVisit, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session `%s`\n\n", session)

	usable := "yes"
	if problem != nil {
		usable = "no: " + problem.Error()
	}
	saved := time.UnixMilli(snap.Timestamp)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Saved | %s (%s ago) |\n", saved.Format(time.DateTime), now.Sub(saved).Round(time.Second))
	if !lastVisit.IsZero() {
		fmt.Fprintf(&b, "| Last visit | %s |\n", lastVisit.Format(time.DateTime))
	}
	fmt.Fprintf(&b, "| Schema | v%d |\n", snap.Version)
	fmt.Fprintf(&b, "| Date seed | %d |\n", snap.DateSeed)
	fmt.Fprintf(&b, "| Scroll | %.0f px |\n", snap.ScrollY)
	fmt.Fprintf(&b, "| Viewport | %.0f x %.0f @%g |\n", snap.Viewport.Width, snap.Viewport.Height, snap.Viewport.PixelRatio)
	fmt.Fprintf(&b, "| Stars | %d |\n", len(snap.Stars))
	fmt.Fprintf(&b, "| Restorable | %s |\n", usable)

	var counts [3]int
	for _, s := range snap.Stars {
		if int(s.State) < len(counts) {
			counts[s.State]++
		}
	}
	b.WriteString("\n## Stars by state\n\n| State | Count |\n|---|---|\n")
	for _, st := range []field.State{field.Visible, field.FadingIn, field.FadingOut} {
		fmt.Fprintf(&b, "| %s | %d |\n", st, counts[st])
	}
	return b.String()
}

func sessionsMarkdown(sessions []persist.SessionInfo, now time.Time) string {
	if len(sessions) == 0 {
		return "No stored sessions.\n"
	}
	var b strings.Builder
	b.WriteString("# Sessions\n\n| Session | Items | Updated |\n|---|---|---|\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "| `%s` | %d | %s ago |\n", s.ID, s.Items, now.Sub(s.UpdatedAt).Round(time.Second))
	}
	return b.String()
}
