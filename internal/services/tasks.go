package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tgienger/taskboard/internal/audit"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/policy"
)

// TaskInput is the data needed to create a task
type TaskInput struct {
	ProjectID   int64            `json:"project_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	AssigneeID  *int64           `json:"assignee_id"`
	DueDate     models.Date      `json:"due_date"`
	Priority    models.Priority  `json:"priority"`
	State       models.TaskState `json:"state"`
}

// TaskUpdate changes only the fields that are set. ClearAssignee unassigns the task.
type TaskUpdate struct {
	Title         *string           `json:"title"`
	Description   *string           `json:"description"`
	AssigneeID    *int64            `json:"assignee_id"`
	ClearAssignee bool              `json:"clear_assignee"`
	DueDate       *models.Date      `json:"due_date"`
	State         *models.TaskState `json:"state"`
	Priority      *models.Priority  `json:"priority"`
}

// validateTask checks field values and the due date against the project window
func validateTask(t *models.Task, p *models.Project) error {
	title, err := requireText("title", t.Title, 1, maxNameLen)
	if err != nil {
		return err
	}
	t.Title = title

	if !t.State.Valid() {
		return perrors.NewErrValidation("state", "unknown state "+string(t.State))
	}
	if !t.Priority.Valid() {
		return perrors.NewErrValidation("priority", "unknown priority "+string(t.Priority))
	}
	if t.DueDate.IsZero() {
		return perrors.NewErrValidation("due_date", "due date is required")
	}
	if t.DueDate.Before(p.StartDate) {
		return perrors.NewErrValidation("due_date", "due date cannot be before the project start date")
	}
	if p.EndDate != nil && t.DueDate.After(*p.EndDate) {
		return perrors.NewErrValidation("due_date", "due date cannot be after the project end date")
	}
	return nil
}

// resolveAssignee loads the assignee, reporting a missing user as a validation error
func resolveAssignee(ctx context.Context, tx *db.Tx, id *int64) (*models.User, error) {
	if id == nil {
		return nil, nil
	}
	u, err := tx.GetUser(ctx, *id)
	if perrors.IsNotFound(err) {
		return nil, perrors.NewErrValidation("assignee_id", "assignee does not exist")
	}
	return u, err
}

// CreateTask creates a task and records its creation in the audit trail
func (s *Service) CreateTask(ctx context.Context, actor *models.User, in TaskInput) (*models.TaskView, error) {
	if err := policy.Require(actor, policy.CanCreateTask); err != nil {
		return nil, err
	}

	t := models.Task{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		CreatorID:   actor.ID,
		DueDate:     in.DueDate,
		State:       in.State,
		Priority:    in.Priority,
	}
	if t.State == "" {
		t.State = models.StatePending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	today := s.Today()
	if !t.DueDate.IsZero() && t.DueDate.Before(today) {
		return nil, perrors.NewErrValidation("due_date", "due date cannot be in the past")
	}

	var created *models.Task
	var assignee *models.User
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		p, err := tx.GetProject(ctx, t.ProjectID)
		if perrors.IsNotFound(err) {
			return perrors.NewErrValidation("project_id", "project does not exist")
		}
		if err != nil {
			return err
		}
		if err := validateTask(&t, p); err != nil {
			return err
		}
		if assignee, err = resolveAssignee(ctx, tx, t.AssigneeID); err != nil {
			return err
		}

		if created, err = tx.CreateTask(ctx, t); err != nil {
			return err
		}

		auditErr := s.engine.Emit(ctx, tx, audit.Mutation{
			Kind:     audit.Created,
			Task:     *created,
			Assignee: assignee,
			Actor:    actor,
		})
		s.logAuditFailure(auditErr, logrus.Fields{"task_id": created.ID, "actor": actor.Username})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"task_id": created.ID, "actor": actor.Username}).Info("task created")
	view := models.NewTaskView(*created, usernameOf(assignee), today)
	return &view, nil
}

// UpdateTask applies upd to a task. The persisted state and assignee are captured
// before the write so the audit trail reflects what actually changed.
func (s *Service) UpdateTask(ctx context.Context, actor *models.User, id int64, upd TaskUpdate) (*models.TaskView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}

	var saved models.Task
	var assignee *models.User
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		before := audit.Capture(ctx, tx, id)

		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Require(actor, policy.CanUpdateTask(t)); err != nil {
			return err
		}

		applyTaskUpdate(t, upd)

		p, err := tx.GetProject(ctx, t.ProjectID)
		if err != nil {
			return err
		}
		if err := validateTask(t, p); err != nil {
			return err
		}
		if assignee, err = resolveAssignee(ctx, tx, t.AssigneeID); err != nil {
			return err
		}

		if err := tx.UpdateTask(ctx, *t); err != nil {
			return err
		}
		saved = *t

		auditErr := s.engine.Emit(ctx, tx, audit.Mutation{
			Kind:     audit.Updated,
			Before:   before,
			Task:     saved,
			Assignee: assignee,
			Actor:    actor,
		})
		s.logAuditFailure(auditErr, logrus.Fields{"task_id": id, "actor": actor.Username})
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := models.NewTaskView(saved, usernameOf(assignee), s.Today())
	return &view, nil
}

// AdvanceState moves a task to the next state in its lifecycle. A completed
// task goes back to pending, and the reopen is audited like any other change.
func (s *Service) AdvanceState(ctx context.Context, actor *models.User, id int64) (*models.TaskView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	state, _, err := s.db.GetTaskState(ctx, id)
	if err != nil {
		return nil, err
	}
	next := state.Next()
	return s.UpdateTask(ctx, actor, id, TaskUpdate{State: &next})
}

func applyTaskUpdate(t *models.Task, upd TaskUpdate) {
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.ClearAssignee {
		t.AssigneeID = nil
	} else if upd.AssigneeID != nil {
		id := *upd.AssigneeID
		t.AssigneeID = &id
	}
	if upd.DueDate != nil {
		t.DueDate = *upd.DueDate
	}
	if upd.State != nil {
		t.State = *upd.State
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
}

// GetTask returns one task with its derived metrics
func (s *Service) GetTask(ctx context.Context, actor *models.User, id int64) (*models.TaskView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}

	t, err := s.db.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	var name string
	if t.AssigneeID != nil {
		u, err := s.db.GetUser(ctx, *t.AssigneeID)
		if err != nil {
			return nil, err
		}
		name = u.Username
	}

	view := models.NewTaskView(*t, name, s.Today())
	return &view, nil
}

// ListTasks returns the tasks matching f with their derived metrics
func (s *Service) ListTasks(ctx context.Context, actor *models.User, f db.TaskFilter) ([]models.TaskView, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	if f.State != nil && !f.State.Valid() {
		return nil, perrors.NewErrValidation("state", "unknown state "+string(*f.State))
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return nil, perrors.NewErrValidation("priority", "unknown priority "+string(*f.Priority))
	}

	tasks, err := s.db.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.taskViews(ctx, tasks)
}

func (s *Service) taskViews(ctx context.Context, tasks []models.Task) ([]models.TaskView, error) {
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	today := s.Today()
	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		var name string
		if t.AssigneeID != nil {
			name = names[*t.AssigneeID]
		}
		views = append(views, models.NewTaskView(t, name, today))
	}
	return views, nil
}

// DeleteTask removes a task with its comments, history and notifications
func (s *Service) DeleteTask(ctx context.Context, actor *models.User, id int64) error {
	if err := policy.Require(actor, policy.CanDeleteTask); err != nil {
		return err
	}
	if err := s.db.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"task_id": id, "actor": actor.Username}).Info("task deleted")
	return nil
}

// TaskHistory returns the audit trail of a task, oldest first
func (s *Service) TaskHistory(ctx context.Context, actor *models.User, id int64) ([]models.HistoryEntry, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	if _, err := s.db.GetTask(ctx, id); err != nil {
		return nil, err
	}
	return s.db.ListHistory(ctx, id)
}

func usernameOf(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
