package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/services"
)

const seedPassword = "secret1"

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, a project and some tasks",
		Long:  "Load demo data. Does nothing when a project already exists. Demo users get the password " + seedPassword + ".",
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
			return a.seed(ctx, svc, actor)
		},
	}
}

func (a *app) seed(ctx context.Context, svc *services.Service, admin *models.User) error {
	existing, err := svc.ListProjects(ctx, admin, db.ProjectFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Fprintln(a.out, "database already has projects, nothing to seed")
		return nil
	}

	ana, err := seedUser(ctx, svc, "ana")
	if err != nil {
		return err
	}
	bo, err := seedUser(ctx, svc, "bo")
	if err != nil {
		return err
	}

	today := svc.Today()
	end := today.AddDays(60)
	project, err := svc.CreateProject(ctx, admin, services.ProjectInput{
		Name:        "Website relaunch",
		Description: "New landing page, copy and analytics",
		StartDate:   today.AddDays(-14),
		EndDate:     &end,
	})
	if err != nil {
		return err
	}
	for _, u := range []*models.User{ana, bo} {
		if err := svc.AddMember(ctx, admin, project.ID, u.ID); err != nil {
			return err
		}
	}

	tasks := []services.TaskInput{
		{Title: "Design landing page", AssigneeID: &ana.ID, DueDate: today.AddDays(1), Priority: models.PriorityHigh},
		{Title: "Write launch copy", AssigneeID: &bo.ID, DueDate: today.AddDays(2), Priority: models.PriorityMedium},
		{Title: "Set up analytics", DueDate: today.AddDays(10), Priority: models.PriorityLow},
	}
	var created []*models.TaskView
	for _, in := range tasks {
		in.ProjectID = project.ID
		t, err := svc.CreateTask(ctx, admin, in)
		if err != nil {
			return err
		}
		created = append(created, t)
	}

	if _, err := svc.AdvanceState(ctx, ana, created[0].ID); err != nil {
		return err
	}
	if _, err := svc.AddComment(ctx, bo, created[0].ID, "Can we get a first draft by tomorrow?"); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "seeded project %q with %d tasks and users ana, bo\n", project.Name, len(created))
	return nil
}

// seedUser registers a demo member, reusing the account when it already exists
func seedUser(ctx context.Context, svc *services.Service, username string) (*models.User, error) {
	u, err := svc.Register(ctx, services.UserInput{Username: username, Password: seedPassword})
	if perrors.IsConflict(err) {
		return svc.UserByName(ctx, username)
	}
	return u, err
}
