package database

import (
	"context"
	"database/sql"
	"time"

	"moodpulse/internal/model"
)

// SaveLog appends one event to the audit trail. Returns false when the write
// failed after retries; the log table is append-only so there is nothing to
// undo.
func (db *DB) SaveLog(ctx context.Context, userID int64, eventType model.EventType, ts time.Time, details string) bool {
	err := db.execWithRetry(ctx, "save_log", func() error {
		_, err := db.ExecContext(ctx,
			"INSERT INTO logs (user_id, event_type, timestamp, details) VALUES (?, ?, ?, ?)",
			userID, string(eventType), ts.UTC(), nullString(details))
		return err
	})
	if err != nil {
		db.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Str("event_type", string(eventType)).
			Msg("failed to save log")
		return false
	}
	return true
}

// GetLastEvent returns the most recent log entry for the user, or nil.
// Best effort: failures are logged and reported as "no event" because the
// callers feed non-critical gating paths.
func (db *DB) GetLastEvent(ctx context.Context, userID int64) *model.LogEntry {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, event_type, timestamp, details
		FROM logs WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`, userID)

	entry, err := scanLogEntry(row)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get last event")
		return nil
	}
	return entry
}

// GetUserActivities returns the user's activity answers, newest first.
// Best effort: empty on failure.
func (db *DB) GetUserActivities(ctx context.Context, userID int64) []model.LogEntry {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, event_type, timestamp, details
		FROM logs WHERE user_id = ? AND event_type = ?
		ORDER BY timestamp DESC`, userID, string(model.EventAnswerActivity))
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get activities")
		return nil
	}
	defer rows.Close()

	entries, err := collectLogEntries(rows)
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to scan activities")
		return nil
	}
	return entries
}

// GetLogsByRange returns log entries for a user within [from, to], optionally
// filtered by event type. This read is the contract consumed by external
// analytics; unlike the best-effort reads above it surfaces its error.
func (db *DB) GetLogsByRange(ctx context.Context, userID int64, from, to time.Time, eventType model.EventType) ([]model.LogEntry, error) {
	query := `
		SELECT id, user_id, event_type, timestamp, details
		FROM logs WHERE user_id = ? AND timestamp BETWEEN ? AND ?`
	args := []any{userID, from.UTC(), to.UTC()}
	if eventType != "" {
		query += " AND event_type = ?"
		args = append(args, string(eventType))
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLogEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row rowScanner) (*model.LogEntry, error) {
	var e model.LogEntry
	var details sql.NullString
	if err := row.Scan(&e.ID, &e.UserID, &e.EventType, &e.Timestamp, &details); err != nil {
		return nil, err
	}
	e.Details = details.String
	return &e, nil
}

func collectLogEntries(rows *sql.Rows) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
