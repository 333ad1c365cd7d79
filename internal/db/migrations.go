package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func init() {
	addMigration(&migration{
		version: "20260301090000",
		name:    "users",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					username TEXT NOT NULL UNIQUE,
					email TEXT NOT NULL DEFAULT '',
					password_hash TEXT NOT NULL,
					first_name TEXT NOT NULL DEFAULT '',
					last_name TEXT NOT NULL DEFAULT '',
					role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS users`)
		},
	})

	addMigration(&migration{
		version: "20260301090100",
		name:    "projects",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE projects (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					start_date DATE NOT NULL,
					end_date DATE,
					owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`, `
				CREATE TABLE project_members (
					project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					PRIMARY KEY (project_id, user_id)
				)`,
				`CREATE INDEX idx_projects_owner ON projects(owner_id)`,
				`CREATE INDEX idx_project_members_user ON project_members(user_id)`,
			)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS project_members`, `DROP TABLE IF EXISTS projects`)
		},
	})

	addMigration(&migration{
		version: "20260301090200",
		name:    "tasks",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE tasks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					assignee_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
					creator_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					due_date DATE NOT NULL,
					state TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'in_progress', 'completed')),
					priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_tasks_project ON tasks(project_id)`,
				`CREATE INDEX idx_tasks_assignee ON tasks(assignee_id)`,
				`CREATE INDEX idx_tasks_due ON tasks(due_date)`,
			)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS tasks`)
		},
	})

	addMigration(&migration{
		version: "20260301090300",
		name:    "comments",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE comments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_comments_task ON comments(task_id)`,
			)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS comments`)
		},
	})

	addMigration(&migration{
		version: "20260301090400",
		name:    "task_history",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE task_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					action TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_task_history_task ON task_history(task_id)`,
			)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS task_history`)
		},
	})

	addMigration(&migration{
		version: "20260301090500",
		name:    "notifications",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE notifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
					message TEXT NOT NULL CHECK (length(message) <= 255),
					type TEXT NOT NULL CHECK (type IN ('assignment', 'due_soon', 'state_change', 'comment')),
					is_read BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_notifications_user ON notifications(user_id, is_read)`,
			)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS notifications`)
		},
	})

	addMigration(&migration{
		version: "20260301090600",
		name:    "settings",
		up: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `
				CREATE TABLE settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL
				)`)
		},
		down: func(ctx context.Context, tx *sqlx.Tx) error {
			return execAll(ctx, tx, `DROP TABLE IF EXISTS settings`)
		},
	})
}
