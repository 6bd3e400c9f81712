package database

import (
	"context"
	"database/sql"
	"time"

	"moodpulse/internal/model"
)

// SaveActivityAndCreateMoodRequest records an activity answer and opens a new
// pending mood request in one transaction, so a cycle transition is never
// half-applied. When the transaction cannot be committed even after retries,
// the activity answer alone is re-appended outside the transaction: the
// cycle then degrades to "answer recorded, no way to time out" instead of
// losing the answer.
//
// Returns (activitySaved, moodRequestCreated).
func (db *DB) SaveActivityAndCreateMoodRequest(ctx context.Context, userID int64, activity string, ts time.Time) (bool, bool) {
	err := db.execWithRetry(ctx, "save_activity_and_create_request", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO logs (user_id, event_type, timestamp, details) VALUES (?, ?, ?, ?)",
				userID, string(model.EventAnswerActivity), ts.UTC(), nullString(activity)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO mood_requests (user_id, request_time, status) VALUES (?, ?, ?)",
				userID, ts.UTC(), string(model.RequestStatusPending))
			return err
		})
	})
	if err == nil {
		return true, true
	}

	db.logger.Warn().
		Err(err).
		Int64("user_id", userID).
		Msg("atomic activity write failed, saving answer without mood request")

	if db.SaveLog(ctx, userID, model.EventAnswerActivity, ts, activity) {
		return true, false
	}
	return false, false
}

// SaveEmotionAndUpdateRequest records an emotional answer and closes the most
// recent pending mood request in one transaction. When no pending request
// exists the answer is still persisted and requestUpdated is false.
//
// Returns (emotionSaved, requestUpdated).
func (db *DB) SaveEmotionAndUpdateRequest(ctx context.Context, userID int64, mood string, ts time.Time) (bool, bool) {
	var updated bool
	err := db.execWithRetry(ctx, "save_emotion_and_update_request", func() error {
		updated = false
		return db.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO logs (user_id, event_type, timestamp, details) VALUES (?, ?, ?, ?)",
				userID, string(model.EventAnswerEmotional), ts.UTC(), nullString(mood)); err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE mood_requests SET status = ?, response_time = ?
				WHERE id = (
					SELECT id FROM mood_requests
					WHERE user_id = ? AND status = ?
					ORDER BY request_time DESC, id DESC LIMIT 1
				)`,
				string(model.RequestStatusAnswered), ts.UTC(),
				userID, string(model.RequestStatusPending))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			updated = n > 0
			return nil
		})
	})
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to save emotion answer")
		return false, false
	}
	return true, updated
}

// MarkRequestUnanswered flips a specific pending request to the terminal
// not_answered state. Returns (found, ok): found is false when no matching
// pending row exists, ok is false when the write itself failed.
func (db *DB) MarkRequestUnanswered(ctx context.Context, userID int64, requestTime time.Time) (bool, bool) {
	var found bool
	err := db.execWithRetry(ctx, "mark_request_unanswered", func() error {
		res, err := db.ExecContext(ctx, `
			UPDATE mood_requests SET status = ?
			WHERE user_id = ? AND request_time = ? AND status = ?`,
			string(model.RequestStatusNotAnswered),
			userID, requestTime.UTC(), string(model.RequestStatusPending))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})
	if err != nil {
		db.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to mark request unanswered")
		return false, false
	}
	if !found {
		db.logger.Warn().
			Int64("user_id", userID).
			Time("request_time", requestTime).
			Msg("no matching pending request to mark unanswered")
	}
	return found, true
}

// GetPendingRequests returns all pending mood requests across users, oldest
// first. Best effort: empty on failure, since the sweep simply runs again.
func (db *DB) GetPendingRequests(ctx context.Context) []model.MoodRequest {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, request_time, response_time, status
		FROM mood_requests WHERE status = ?
		ORDER BY request_time ASC`, string(model.RequestStatusPending))
	if err != nil {
		db.logger.Error().Err(err).Msg("failed to get pending requests")
		return nil
	}
	defer rows.Close()

	var requests []model.MoodRequest
	for rows.Next() {
		var r model.MoodRequest
		var responseTime sql.NullTime
		if err := rows.Scan(&r.ID, &r.UserID, &r.RequestTime, &responseTime, &r.Status); err != nil {
			db.logger.Error().Err(err).Msg("failed to scan pending request")
			return nil
		}
		if responseTime.Valid {
			t := responseTime.Time
			r.ResponseTime = &t
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		db.logger.Error().Err(err).Msg("failed to iterate pending requests")
		return nil
	}
	return requests
}

// CountPendingRequests returns the number of pending requests for a user.
func (db *DB) CountPendingRequests(ctx context.Context, userID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM mood_requests WHERE user_id = ? AND status = ?",
		userID, string(model.RequestStatusPending),
	).Scan(&n)
	return n, err
}
