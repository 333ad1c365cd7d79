package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var in services.UserInput
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			actor, err := a.actor(ctx, svc)
			if err != nil {
				return err
			}
			in.Role = models.Role(role)
			u, err := svc.CreateUser(ctx, actor, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s user %s (id %d)\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&in.Username, "username", "u", "", "username")
	create.Flags().StringVarP(&in.Password, "password", "p", "", "password")
	create.Flags().StringVar(&in.Email, "email", "", "email address")
	create.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	create.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	create.Flags().StringVar(&role, "role", string(models.RoleMember), "admin or member")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			actor, err := a.actor(ctx, svc)
			if err != nil {
				return err
			}
			users, err := svc.ListUsers(ctx, actor)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tEMAIL")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.Email)
			}
			return w.Flush()
		},
	}

	setRole := &cobra.Command{
		Use:   "role <username> <admin|member>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			actor, err := a.actor(ctx, svc)
			if err != nil {
				return err
			}
			target, err := svc.UserByName(ctx, args[0])
			if err != nil {
				return err
			}
			u, err := svc.SetRole(ctx, actor, target.ID, models.Role(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s\n", u.Username, u.Role)
			return nil
		},
	}

	cmd.AddCommand(create, list, setRole)
	return cmd
}
