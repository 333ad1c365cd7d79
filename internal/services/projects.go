package services

import (
	"context"

	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/policy"
)

const maxNameLen = 200

// ProjectInput is the data needed to create a project
type ProjectInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartDate   models.Date  `json:"start_date"`
	EndDate     *models.Date `json:"end_date"`
	Active      *bool        `json:"active"`
}

// ProjectUpdate changes only the fields that are set
type ProjectUpdate struct {
	Name         *string      `json:"name"`
	Description  *string      `json:"description"`
	StartDate    *models.Date `json:"start_date"`
	EndDate      *models.Date `json:"end_date"`
	ClearEndDate bool         `json:"clear_end_date"`
	Active       *bool        `json:"active"`
}

func validateProject(p *models.Project) error {
	name, err := requireText("name", p.Name, 1, maxNameLen)
	if err != nil {
		return err
	}
	p.Name = name
	if p.StartDate.IsZero() {
		return perrors.NewErrValidation("start_date", "start date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return perrors.NewErrValidation("end_date", "end date cannot be before start date")
	}
	return nil
}

// CreateProject creates a project owned by actor
func (s *Service) CreateProject(ctx context.Context, actor *models.User, in ProjectInput) (*models.ProjectView, error) {
	if err := policy.Require(actor, policy.CanManageProjects); err != nil {
		return nil, err
	}

	p := models.Project{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		OwnerID:     actor.ID,
		Active:      in.Active == nil || *in.Active,
	}
	if err := validateProject(&p); err != nil {
		return nil, err
	}

	created, err := s.db.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}

	s.log.WithField("project_id", created.ID).WithField("actor", actor.Username).Info("project created")
	view := models.NewProjectView(*created, nil, s.Today())
	return &view, nil
}

// GetProject returns a project with its progress and overdue flag
func (s *Service) GetProject(ctx context.Context, actor *models.User, id int64) (*models.ProjectView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}

	p, err := s.db.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.db.ListTasks(ctx, db.TaskFilter{ProjectID: &p.ID})
	if err != nil {
		return nil, err
	}

	view := models.NewProjectView(*p, tasks, s.Today())
	return &view, nil
}

// ListProjects returns the projects matching f with their derived metrics
func (s *Service) ListProjects(ctx context.Context, actor *models.User, f db.ProjectFilter) ([]models.ProjectView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}

	projects, err := s.db.ListProjects(ctx, f)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	views := make([]models.ProjectView, 0, len(projects))
	for _, p := range projects {
		tasks, err := s.db.ListTasks(ctx, db.TaskFilter{ProjectID: &p.ID})
		if err != nil {
			return nil, err
		}
		views = append(views, models.NewProjectView(p, tasks, today))
	}
	return views, nil
}

// UpdateProject applies upd to a project
func (s *Service) UpdateProject(ctx context.Context, actor *models.User, id int64, upd ProjectUpdate) (*models.ProjectView, error) {
	if err := policy.Require(actor, policy.CanManageProjects); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.StartDate != nil {
			p.StartDate = *upd.StartDate
		}
		if upd.ClearEndDate {
			p.EndDate = nil
		} else if upd.EndDate != nil {
			p.EndDate = upd.EndDate
		}
		if upd.Active != nil {
			p.Active = *upd.Active
		}
		if err := validateProject(p); err != nil {
			return err
		}
		return tx.UpdateProject(ctx, *p)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProject(ctx, actor, id)
}

// DeleteProject removes a project with its tasks and their audit trail
func (s *Service) DeleteProject(ctx context.Context, actor *models.User, id int64) error {
	if err := policy.Require(actor, policy.CanManageProjects); err != nil {
		return err
	}
	if err := s.db.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.log.WithField("project_id", id).WithField("actor", actor.Username).Info("project deleted")
	return nil
}

// AddMember adds userID to a project
func (s *Service) AddMember(ctx context.Context, actor *models.User, projectID, userID int64) error {
	if err := policy.Require(actor, policy.CanManageProjects); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return tx.AddProjectMember(ctx, projectID, userID)
	})
}

// RemoveMember removes userID from a project
func (s *Service) RemoveMember(ctx context.Context, actor *models.User, projectID, userID int64) error {
	if err := policy.Require(actor, policy.CanManageProjects); err != nil {
		return err
	}
	return s.db.RemoveProjectMember(ctx, projectID, userID)
}

// ListMembers returns the members of a project
func (s *Service) ListMembers(ctx context.Context, actor *models.User, projectID int64) ([]models.User, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	if _, err := s.db.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.db.ListProjectMembers(ctx, projectID)
}
