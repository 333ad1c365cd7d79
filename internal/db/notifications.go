package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

const notificationColumns = `id, user_id, task_id, message, type, is_read, created_at`

// CreateNotification stores an unread notification for userID
func (q Queries) CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error) {
	return lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO notifications (user_id, task_id, message, type) VALUES (?, ?, ?, ?)
	`, userID, taskID, message, typ))
}

// GetNotification retrieves a notification owned by userID
func (q Queries) GetNotification(ctx context.Context, id, userID int64) (*models.Notification, error) {
	n := &models.Notification{}
	err := sqlx.GetContext(ctx, q.ext, n, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return nil, notFound(err, "notification", id)
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first
func (q Queries) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var list []models.Notification
	err := sqlx.SelectContext(ctx, q.ext, &list, query, userID)
	return list, err
}

// CountUnread returns how many unread notifications userID has
func (q Queries) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0
	`, userID)
	return n, err
}

// HasUnread reports whether userID already has an unread notification of typ for taskID
func (q Queries) HasUnread(ctx context.Context, userID, taskID int64, typ models.NotificationType) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.ext, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = ? AND task_id = ? AND type = ? AND is_read = 0
		)
	`, userID, taskID, typ)
	return exists, err
}

// MarkRead marks one of userID's notifications as read. Marking an already read
// notification succeeds; a notification owned by someone else is NotFound.
func (q Queries) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?
	`, id, userID)
	return affected(res, err, "notification", id)
}

// MarkAllRead marks every unread notification of userID as read and returns how many changed
func (q Queries) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
