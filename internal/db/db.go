package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/tgienger/taskboard/internal/perrors"
)

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	Queries
}

// Tx is one open transaction. Its Queries run inside it.
type Tx struct {
	tx *sqlx.Tx
	Queries
}

// Queries holds every entity query; it runs against a DB or a Tx
type Queries struct {
	ext sqlx.ExtContext
}

// New opens the database at path and applies pending migrations
func New(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(db).Up(context.Background(), 0); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Open opens (creating if needed) the database at path without touching the schema.
//
// Connections enable foreign keys so cascades fire, and begin transactions IMMEDIATE so
// a read inside a transaction already holds the write lock.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	return &DB{DB: conn, Queries: Queries{ext: conn}}, nil
}

// WithTx runs fn in a transaction, committing when fn returns nil
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	tx := &Tx{tx: sqlTx, Queries: Queries{ext: sqlTx}}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a named savepoint. When fn fails only its own writes are
// undone; the surrounding transaction stays usable.
func (tx *Tx) Savepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := tx.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		if _, relErr := tx.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			return fmt.Errorf("%w (release savepoint: %v)", err, relErr)
		}
		return err
	}

	_, err := tx.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// GetSetting retrieves a setting value by key
func (q Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := sqlx.GetContext(ctx, q.ext, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (q Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// notFound maps a missing row to a NotFound error for entity
func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return perrors.NewErrNotFound(entity, id)
	}
	return err
}

// affected turns an UPDATE or DELETE that touched no row into NotFound
func affected(res sql.Result, err error, entity string, id any) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return perrors.NewErrNotFound(entity, id)
	}
	return nil
}

// lastInsertID returns the rowid produced by an INSERT
func lastInsertID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
