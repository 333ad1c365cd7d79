package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/ui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Long:  "Open the terminal UI. With --as the login screen is skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
}

func (a *app) runTUI(ctx context.Context) error {
	svc, store, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var user *models.User
	if a.as != "" {
		if user, err = a.actor(ctx, svc); err != nil {
			return err
		}
	}

	p := tea.NewProgram(ui.NewApp(ctx, svc, user), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
