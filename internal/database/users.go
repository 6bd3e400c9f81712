package database

import (
	"context"
	"database/sql"

	"moodpulse/internal/model"
)

// SaveUser creates the user on first contact or updates the timezone of an
// existing one. Returns false when the write failed after retries.
func (db *DB) SaveUser(ctx context.Context, userID int64, tz string) bool {
	err := db.execWithRetry(ctx, "save_user", func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (user_id, timezone) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone`,
			userID, nullString(tz))
		return err
	})
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to save user")
		return false
	}
	return true
}

// GetUser returns the user or nil when unknown.
func (db *DB) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	var tz sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT id, user_id, timezone FROM users WHERE user_id = ?",
		userID,
	).Scan(&u.ID, &u.UserID, &tz)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Timezone = tz.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
