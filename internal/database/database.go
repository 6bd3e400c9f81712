package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection for the survey engine. All compound cycle
// transitions go through withTx so callers never observe a half-applied
// write; single-statement writes go through execWithRetry.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

// New opens (or creates) the database at path with WAL journaling enabled,
// so the background sweep can read while an answer handler writes.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_loc=UTC"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

// NewMemory opens an in-memory database for tests. The pool is limited to a
// single connection because each sqlite in-memory connection is its own
// database.
func NewMemory(logger *zerolog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER UNIQUE NOT NULL,
			timezone TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS user_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER UNIQUE NOT NULL,
			survey_interval INTEGER NOT NULL DEFAULT 60,
			quiet_hours_start INTEGER,
			quiet_hours_end INTEGER,
			weekend_mode TEXT NOT NULL DEFAULT 'normal',
			reminder_enabled BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			details TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS mood_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			request_time DATETIME NOT NULL,
			response_time DATETIME,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,

		`CREATE INDEX IF NOT EXISTS idx_logs_user_time ON logs(user_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_user_type ON logs(user_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_requests_status ON mood_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_requests_user_time ON mood_requests(user_id, request_time)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// withTx runs fn inside a transaction: begin, fn, commit; any error rolls
// the whole transaction back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// execWithRetry retries fn with exponential backoff when sqlite reports
// transient contention (SQLITE_BUSY / SQLITE_LOCKED). Other errors fail
// immediately.
func (db *DB) execWithRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	wait := retryBaseWait
	for attempt := 0; attempt < retryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < retryAttempts-1 {
			db.logger.Warn().
				Err(lastErr).
				Str("op", op).
				Int("attempt", attempt+1).
				Msg("transient database error, retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			wait *= 2
		}
	}
	db.logger.Error().Err(lastErr).Str("op", op).Int("attempts", retryAttempts).Msg("database operation failed")
	return lastErr
}

// isTransient reports whether the error is worth retrying.
func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
