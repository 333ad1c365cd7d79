package db

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tgienger/taskboard/internal/models"
)

const projectColumns = `p.id, p.name, p.description, p.start_date, p.end_date, p.owner_id, p.active, p.created_at, p.updated_at`

// ProjectFilter narrows ListProjects. Zero fields match everything.
type ProjectFilter struct {
	OwnerID   *int64
	MemberID  *int64
	Active    *bool
	Search    string
	StartFrom *models.Date
	StartTo   *models.Date
}

// CreateProject creates a new project
func (q Queries) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	id, err := lastInsertID(q.ext.ExecContext(ctx, `
		INSERT INTO projects (name, description, start_date, end_date, owner_id, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.StartDate, p.EndDate, p.OwnerID, p.Active))
	if err != nil {
		return nil, err
	}

	return q.GetProject(ctx, id)
}

// GetProject retrieves a project by ID
func (q Queries) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p := &models.Project{}
	err := sqlx.GetContext(ctx, q.ext, p, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return p, nil
}

// ListProjects returns the projects matching f, most recently updated first
func (q Queries) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	var where []string
	var args []any

	if f.OwnerID != nil {
		where = append(where, "p.owner_id = ?")
		args = append(args, *f.OwnerID)
	}
	if f.MemberID != nil {
		where = append(where, "EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = ?)")
		args = append(args, *f.MemberID)
	}
	if f.Active != nil {
		where = append(where, "p.active = ?")
		args = append(args, *f.Active)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(p.name LIKE ? OR p.description LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	if f.StartFrom != nil {
		where = append(where, "p.start_date >= ?")
		args = append(args, *f.StartFrom)
	}
	if f.StartTo != nil {
		where = append(where, "p.start_date <= ?")
		args = append(args, *f.StartTo)
	}

	query := `SELECT ` + projectColumns + ` FROM projects p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.updated_at DESC, p.id DESC"

	var projects []models.Project
	err := sqlx.SelectContext(ctx, q.ext, &projects, query, args...)
	return projects, err
}

// UpdateProject overwrites the editable fields of a project
func (q Queries) UpdateProject(ctx context.Context, p models.Project) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, start_date = ?, end_date = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Description, p.StartDate, p.EndDate, p.Active, p.ID)
	return affected(res, err, "project", p.ID)
}

// DeleteProject deletes a project and, through the foreign keys, everything under it
func (q Queries) DeleteProject(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return affected(res, err, "project", id)
}

// AddProjectMember adds a user to a project. Adding an existing member is a no-op.
func (q Queries) AddProjectMember(ctx context.Context, projectID, userID int64) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)
	`, projectID, userID)
	return err
}

// RemoveProjectMember removes a user from a project
func (q Queries) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	res, err := q.ext.ExecContext(ctx, `
		DELETE FROM project_members WHERE project_id = ? AND user_id = ?
	`, projectID, userID)
	return affected(res, err, "project member", userID)
}

// ListProjectMembers returns the members of a project ordered by username
func (q Queries) ListProjectMembers(ctx context.Context, projectID int64) ([]models.User, error) {
	var users []models.User
	err := sqlx.SelectContext(ctx, q.ext, &users, `
		SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.created_at, u.updated_at
		FROM users u
		JOIN project_members m ON m.user_id = u.id
		WHERE m.project_id = ?
		ORDER BY u.username
	`, projectID)
	return users, err
}

// CountProjects returns the number of projects
func (q Queries) CountProjects(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n, `SELECT COUNT(*) FROM projects`)
	return n, err
}
