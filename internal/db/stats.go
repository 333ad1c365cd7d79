package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

// CountTasksByState groups task counts by state. A non-nil assigneeID limits
// the count to that user's tasks.
func (q Queries) CountTasksByState(ctx context.Context, assigneeID *int64) (map[models.TaskState]int, error) {
	query := `SELECT state AS k, COUNT(*) AS n FROM tasks`
	var args []any
	if assigneeID != nil {
		query += ` WHERE assignee_id = ?`
		args = append(args, *assigneeID)
	}
	query += ` GROUP BY state`

	rows, err := q.groupCounts(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make(map[models.TaskState]int, len(models.TaskStates))
	for _, st := range models.TaskStates {
		out[st] = rows[string(st)]
	}
	return out, nil
}

// CountTasksByPriority groups task counts by priority
func (q Queries) CountTasksByPriority(ctx context.Context) (map[models.Priority]int, error) {
	rows, err := q.groupCounts(ctx, `SELECT priority AS k, COUNT(*) AS n FROM tasks GROUP BY priority`)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Priority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		out[p] = rows[string(p)]
	}
	return out, nil
}

// CountOverdueTasks counts unfinished tasks whose due date is before today
func (q Queries) CountOverdueTasks(ctx context.Context, today models.Date) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n, `
		SELECT COUNT(*) FROM tasks WHERE due_date < ? AND state != 'completed'
	`, today)
	return n, err
}

func (q Queries) groupCounts(ctx context.Context, query string, args ...any) (map[string]int, error) {
	var rows []struct {
		Key   string `db:"k"`
		Count int    `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}
