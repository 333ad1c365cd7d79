package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send scheduled notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var days int
	dueSoon := &cobra.Command{
		Use:   "due-soon",
		Short: "Remind assignees of open tasks that are due soon",
		Long: `Remind assignees of open tasks due within --days. A task that already has an
unread reminder for its assignee is skipped, so the command is safe to run from cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !cmd.Flags().Changed("days") {
				days = a.cfg.Notify.DueSoonDays
			}
			n, err := svc.NotifyDueSoon(ctx, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "sent %d due-soon notifications\n", n)
			return nil
		},
	}
	dueSoon.Flags().IntVarP(&days, "days", "d", 3, "look this many days ahead (default from config notify.due_soon_days)")

	cmd.AddCommand(dueSoon)
	return cmd
}
