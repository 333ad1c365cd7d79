package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, role, created_at, updated_at`

// CreateUser inserts a new user. A taken username is a Conflict.
func (q Queries) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = models.RoleMember
	}

	id, err := lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, perrors.NewErrConflict(fmt.Sprintf("username %q is already taken", u.Username))
		}
		return nil, err
	}

	return q.GetUser(ctx, id)
}

// GetUser retrieves a user by ID
func (q Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := sqlx.GetContext(ctx, q.ext, u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username
func (q Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := sqlx.GetContext(ctx, q.ext, u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return u, nil
}

// ListUsers returns all users ordered by username
func (q Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := sqlx.SelectContext(ctx, q.ext, &users, `SELECT `+userColumns+` FROM users ORDER BY username`)
	return users, err
}

// CountUsers returns the number of accounts
func (q Queries) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// UpdateUserRole changes the role of a user
func (q Queries) UpdateUserRole(ctx context.Context, id int64, role models.Role) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, role, id)
	return affected(res, err, "user", id)
}

// DeleteUser deletes a user. Owned projects and created tasks go with it;
// tasks assigned to the user become unassigned.
func (q Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return affected(res, err, "user", id)
}
