package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/ui"
	"github.com/urfave/cli/v3"
)

// TasksWatch launches the terminal UI, on one task when an id is given and on the task list otherwise.
func (r *Runner) TasksWatch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := filepath.Join(r.config.Storage.Root, "ecopart-tui.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	r.SetLogger(shared.NewFileLogger(f))

	filter := repositories.TaskFilter{Fields: map[string]string{}, Desc: true}
	if p := cmd.Int("project"); p > 0 {
		filter.Fields["project_id"] = strconv.Itoa(p)
	}

	model := ui.NewModel(ctx, r.ledger, filter, cmd.StringArg("id"), cmd.Duration("interval"))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
