package database

import (
	"context"
	"database/sql"
	"time"

	"moodpulse/internal/model"
)

// GetUserSettings returns the stored settings row or nil when the user has
// none yet. Lazy default creation lives in the settings package.
func (db *DB) GetUserSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, survey_interval, quiet_hours_start, quiet_hours_end,
		       weekend_mode, reminder_enabled, created_at, updated_at
		FROM user_settings WHERE user_id = ?`, userID)

	var s model.UserSettings
	var quietStart, quietEnd sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &s.SurveyInterval, &quietStart, &quietEnd,
		&s.WeekendMode, &s.ReminderEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if quietStart.Valid {
		v := int(quietStart.Int64)
		s.QuietHoursStart = &v
	}
	if quietEnd.Valid {
		v := int(quietEnd.Int64)
		s.QuietHoursEnd = &v
	}
	return &s, nil
}

// UpsertUserSettings writes the full settings row, creating it when absent.
func (db *DB) UpsertUserSettings(ctx context.Context, s *model.UserSettings) error {
	now := time.Now().UTC()
	return db.execWithRetry(ctx, "upsert_user_settings", func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO user_settings (user_id, survey_interval, quiet_hours_start, quiet_hours_end,
			                           weekend_mode, reminder_enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				survey_interval = excluded.survey_interval,
				quiet_hours_start = excluded.quiet_hours_start,
				quiet_hours_end = excluded.quiet_hours_end,
				weekend_mode = excluded.weekend_mode,
				reminder_enabled = excluded.reminder_enabled,
				updated_at = excluded.updated_at`,
			s.UserID, s.SurveyInterval, nullInt(s.QuietHoursStart), nullInt(s.QuietHoursEnd),
			string(s.WeekendMode), s.ReminderEnabled, now, now)
		return err
	})
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
