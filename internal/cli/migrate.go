package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var upStep, downStep int

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long:  "Apply all pending migrations by default.\nIf step is provided, only the next N are applied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *db.Migrator) error {
				return m.Up(cmd.Context(), upStep)
			})
		},
	}
	up.Flags().IntVarP(&upStep, "step", "s", 0, "number of migrations to apply")

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		Long:  "Revert every applied migration by default.\nIf step is provided, only the last N are reverted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *db.Migrator) error {
				return m.Down(cmd.Context(), downStep)
			})
		},
	}
	down.Flags().IntVarP(&downStep, "step", "s", 0, "number of migrations to revert")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the status of each migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(a.printStatus(cmd.Context()))
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

// withMigrator opens the store without migrating it first
func (a *app) withMigrator(fn func(m *db.Migrator) error) error {
	store, err := db.Open(a.cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	return fn(db.NewMigrator(store))
}

func (a *app) printStatus(ctx context.Context) func(m *db.Migrator) error {
	return func(m *db.Migrator) error {
		list, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
		for _, s := range list {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Version, s.Name, state)
		}
		return w.Flush()
	}
}
