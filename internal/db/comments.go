package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

// CreateComment creates a new comment on a task
func (q Queries) CreateComment(ctx context.Context, taskID, userID int64, content string) (*models.Comment, error) {
	id, err := lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO comments (task_id, user_id, content) VALUES (?, ?, ?)
	`, taskID, userID, content))
	if err != nil {
		return nil, err
	}

	return q.GetComment(ctx, id)
}

// GetComment retrieves a comment by ID
func (q Queries) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c := &models.Comment{}
	err := sqlx.GetContext(ctx, q.ext, c, `
		SELECT c.id, c.task_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ?
	`, id)
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return c, nil
}

// ListComments returns all comments for a task, oldest first
func (q Queries) ListComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := sqlx.SelectContext(ctx, q.ext, &comments, `
		SELECT c.id, c.task_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.task_id = ?
		ORDER BY c.created_at ASC, c.id ASC
	`, taskID)
	return comments, err
}
