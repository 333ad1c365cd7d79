package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

// CreateHistoryEntry appends one line to a task's audit trail
func (q Queries) CreateHistoryEntry(ctx context.Context, taskID, userID int64, action string) (int64, error) {
	return lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO task_history (task_id, user_id, action) VALUES (?, ?, ?)
	`, taskID, userID, action))
}

// ListHistory returns a task's audit trail in the order it was written
func (q Queries) ListHistory(ctx context.Context, taskID int64) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := sqlx.SelectContext(ctx, q.ext, &entries, `
		SELECT h.id, h.task_id, h.user_id, u.username, h.action, h.created_at
		FROM task_history h JOIN users u ON u.id = h.user_id
		WHERE h.task_id = ?
		ORDER BY h.id ASC
	`, taskID)
	return entries, err
}
