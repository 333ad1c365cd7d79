package db

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

const taskColumns = `t.id, t.project_id, t.title, t.description, t.assignee_id, t.creator_id, t.due_date, t.state, t.priority, t.created_at, t.updated_at`

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	ProjectID        *int64
	AssigneeID       *int64
	CreatorID        *int64
	State            *models.TaskState
	Priority         *models.Priority
	DueFrom          *models.Date
	DueTo            *models.Date
	Search           string
	ExcludeCompleted bool
	Limit            int
}

// CreateTask creates a new task
func (q Queries) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	if t.State == "" {
		t.State = models.StatePending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	id, err := lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO tasks (project_id, title, description, assignee_id, creator_id, due_date, state, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ProjectID, t.Title, t.Description, t.AssigneeID, t.CreatorID, t.DueDate, t.State, t.Priority))
	if err != nil {
		return nil, err
	}

	return q.GetTask(ctx, id)
}

// GetTask retrieves a task by ID
func (q Queries) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t := &models.Task{}
	err := sqlx.GetContext(ctx, q.ext, t, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return t, nil
}

// GetTaskState reads only the persisted state and assignee of a task
func (q Queries) GetTaskState(ctx context.Context, id int64) (models.TaskState, *int64, error) {
	var row struct {
		State      models.TaskState `db:"state"`
		AssigneeID *int64           `db:"assignee_id"`
	}
	err := sqlx.GetContext(ctx, q.ext, &row, `SELECT state, assignee_id FROM tasks WHERE id = ?`, id)
	if err != nil {
		return "", nil, notFound(err, "task", id)
	}
	return row.State, row.AssigneeID, nil
}

// ListTasks returns the tasks matching f, ordered by due date then priority (high first)
func (q Queries) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var where []string
	var args []any

	if f.ProjectID != nil {
		where = append(where, "t.project_id = ?")
		args = append(args, *f.ProjectID)
	}
	if f.AssigneeID != nil {
		where = append(where, "t.assignee_id = ?")
		args = append(args, *f.AssigneeID)
	}
	if f.CreatorID != nil {
		where = append(where, "t.creator_id = ?")
		args = append(args, *f.CreatorID)
	}
	if f.State != nil {
		where = append(where, "t.state = ?")
		args = append(args, *f.State)
	}
	if f.ExcludeCompleted {
		where = append(where, "t.state != 'completed'")
	}
	if f.Priority != nil {
		where = append(where, "t.priority = ?")
		args = append(args, *f.Priority)
	}
	if f.DueFrom != nil {
		where = append(where, "t.due_date >= ?")
		args = append(args, *f.DueFrom)
	}
	if f.DueTo != nil {
		where = append(where, "t.due_date <= ?")
		args = append(args, *f.DueTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(t.title LIKE ? OR t.description LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.due_date ASC,
		CASE t.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		t.id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var tasks []models.Task
	err := sqlx.SelectContext(ctx, q.ext, &tasks, query, args...)
	return tasks, err
}

// UpdateTask overwrites the editable fields of a task
func (q Queries) UpdateTask(ctx context.Context, t models.Task) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, assignee_id = ?, due_date = ?, state = ?, priority = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.Title, t.Description, t.AssigneeID, t.DueDate, t.State, t.Priority, t.ID)
	return affected(res, err, "task", t.ID)
}

// DeleteTask deletes a task together with its comments, history and notifications
func (q Queries) DeleteTask(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return affected(res, err, "task", id)
}
