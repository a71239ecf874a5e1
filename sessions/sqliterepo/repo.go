// Package sqliterepo provides a SQLite-backed durable key-value repo for the
// session store. SQLite gives per-key atomic writes and a real transaction
// for the multi-key session persist.
package sqliterepo

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	interrors "github.com/recipevault/go-client-auth/internal/errors"
	"github.com/recipevault/go-client-auth/sessions"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Repo persists session key-value pairs in SQLite.
type Repo struct {
	sqlDB *sql.DB
}

var _ sessions.Repo = (*Repo)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens (creating if needed) a SQLite-backed repo at the given path.
func Open(path string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Repo{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (r *Repo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

// Set writes one key, replacing any previous value.
func (r *Repo) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}
	_, err := r.sqlDB.ExecContext(
		ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, toMillis(time.Now()),
	)
	if err != nil {
		return storageErr(err, "set %s", key)
	}
	return nil
}

// SetMany writes all pairs in one transaction.
func (r *Repo) SetMany(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin tx")
	}
	now := toMillis(time.Now())
	for key, value := range values {
		if key == "" {
			_ = tx.Rollback()
			return fmt.Errorf("key is required")
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		); err != nil {
			_ = tx.Rollback()
			return storageErr(err, "set %s", key)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit tx")
	}
	return nil
}

// Get returns the value for key, or errors.ErrNotFound when absent.
func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := r.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", interrors.ErrNotFound
		}
		return "", storageErr(err, "get %s", key)
	}
	return value, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (r *Repo) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.sqlDB.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return storageErr(err, "delete %s", key)
	}
	return nil
}

// storageErr collapses an underlying database error into the generic
// errors.ErrStorage sentinel; the detail is kept in the message only.
func storageErr(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %v", interrors.ErrStorage, fmt.Sprintf(format, args...), err)
}
