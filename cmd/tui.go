package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI logs in and launches the interactive chart browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	policy, err := stats.ParsePolicy(cmd.String("by"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/libstats-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	s, err := r.login(ctx, cmd.String("fragment"))
	if err != nil {
		return err
	}
	defer s.Close()

	var store ui.SnapshotStore
	repo, closeDB, err := r.openSnapshots()
	if err != nil {
		r.logger.Warn("snapshots disabled", "error", err)
	} else {
		defer closeDB()
		store = repo
	}

	model := ui.NewModel(ctx, s.pipeline, store, policy)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
