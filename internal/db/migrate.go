package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/tgienger/taskboard/internal/logging"
)

// migration is one versioned schema step
type migration struct {
	version string
	name    string
	up      func(context.Context, *sqlx.Tx) error
	down    func(context.Context, *sqlx.Tx) error
}

// registry holds every migration, registered from init in version order
var registry = map[string]*migration{}

func addMigration(mg *migration) {
	if _, dup := registry[mg.version]; dup {
		panic("duplicate migration version " + mg.version)
	}
	registry[mg.version] = mg
}

// MigrationStatus reports whether one migration has been applied
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}

// Migrator applies and reverts the registered migrations
type Migrator struct {
	db  *DB
	log logrus.FieldLogger
}

// NewMigrator returns a migrator for db
func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db, log: logging.Logger.WithField("component", "migrate")}
}

func (m *Migrator) versions() []string {
	versions := make([]string, 0, len(registry))
	for v := range registry {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var done []string
	if err := m.db.SelectContext(ctx, &done, "SELECT version FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(done))
	for _, v := range done {
		applied[v] = true
	}
	return applied, nil
}

// Status lists every migration in version order
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var out []MigrationStatus
	for _, v := range m.versions() {
		out = append(out, MigrationStatus{Version: v, Name: registry[v].name, Applied: applied[v]})
	}
	return out, nil
}

// Up applies pending migrations in one transaction. step limits how many run; 0 runs all.
func (m *Migrator) Up(ctx context.Context, step int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	var pending []*migration
	for _, v := range m.versions() {
		if !applied[v] {
			pending = append(pending, registry[v])
		}
	}
	if step > 0 && len(pending) > step {
		pending = pending[:step]
	}

	return m.run(ctx, pending, func(ctx context.Context, tx *sqlx.Tx, mg *migration) error {
		if err := mg.up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", mg.version)
		return err
	}, "up")
}

// Down reverts applied migrations, newest first. step limits how many run; 0 reverts all.
func (m *Migrator) Down(ctx context.Context, step int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	versions := m.versions()
	var done []*migration
	for i := len(versions) - 1; i >= 0; i-- {
		if applied[versions[i]] {
			done = append(done, registry[versions[i]])
		}
	}
	if step > 0 && len(done) > step {
		done = done[:step]
	}

	return m.run(ctx, done, func(ctx context.Context, tx *sqlx.Tx, mg *migration) error {
		if err := mg.down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mg.version)
		return err
	}, "down")
}

func (m *Migrator) run(ctx context.Context, list []*migration, apply func(context.Context, *sqlx.Tx, *migration) error, direction string) error {
	if len(list) == 0 {
		return nil
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	for _, mg := range list {
		l := m.log.WithFields(logrus.Fields{"version": mg.version, "name": mg.name, "direction": direction})
		l.Debug("running migration")
		if err := apply(ctx, tx, mg); err != nil {
			tx.Rollback()
			l.WithError(err).Error("migration failed")
			return fmt.Errorf("migration %s_%s %s: %w", mg.version, mg.name, direction, err)
		}
		l.Info("migration finished")
	}

	return tx.Commit()
}

// execAll runs each statement in order, stopping at the first failure
func execAll(ctx context.Context, tx *sqlx.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
