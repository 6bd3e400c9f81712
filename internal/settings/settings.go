// Package settings owns per-user survey cadence preferences and the single
// gate that decides whether a periodic cycle may fire.
package settings

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"moodpulse/internal/database"
	"moodpulse/internal/model"
)

// Store reads and writes user settings, lazily creating defaults.
type Store struct {
	db     *database.DB
	logger *zerolog.Logger
	now    func() time.Time
}

// New creates a settings store.
func New(db *database.DB, logger *zerolog.Logger) *Store {
	return &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// QuietHours is a clock-hour window during which no new cycles start.
type QuietHours struct {
	Start int // 0..23
	End   int // 0..23
}

// Patch carries the fields of an explicit settings update; nil fields are
// left untouched. ClearQuietHours wins over QuietHours when both are set.
type Patch struct {
	SurveyInterval  *int
	QuietHours      *QuietHours
	ClearQuietHours bool
	WeekendMode     *model.WeekendMode
	ReminderEnabled *bool
}

// GetOrCreate returns the user's settings, persisting the defaults
// (60 min interval, no quiet hours, normal weekends, reminders on) on
// first read.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) *model.UserSettings {
	existing, err := s.db.GetUserSettings(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to read settings, using defaults")
		return model.DefaultUserSettings(userID)
	}
	if existing != nil {
		return existing
	}

	defaults := model.DefaultUserSettings(userID)
	if err := s.db.UpsertUserSettings(ctx, defaults); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to persist default settings")
	}
	return defaults
}

// Update patches only the supplied fields and reports success. The quiet
// hours bounds are always written as a pair, so the stored row never has
// only one of them set.
func (s *Store) Update(ctx context.Context, userID int64, patch Patch) bool {
	current := s.GetOrCreate(ctx, userID)

	if patch.SurveyInterval != nil {
		current.SurveyInterval = *patch.SurveyInterval
	}
	if patch.ClearQuietHours {
		current.QuietHoursStart = nil
		current.QuietHoursEnd = nil
	} else if patch.QuietHours != nil {
		start, end := patch.QuietHours.Start, patch.QuietHours.End
		current.QuietHoursStart = &start
		current.QuietHoursEnd = &end
	}
	if patch.WeekendMode != nil && patch.WeekendMode.Valid() {
		current.WeekendMode = *patch.WeekendMode
	}
	if patch.ReminderEnabled != nil {
		current.ReminderEnabled = *patch.ReminderEnabled
	}

	if err := s.db.UpsertUserSettings(ctx, current); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update settings")
		return false
	}
	return true
}

// IsQuietHours reports whether the given clock hour is inside the user's
// quiet window. Always false when no window is configured.
func (s *Store) IsQuietHours(ctx context.Context, userID int64, hour int) bool {
	return s.GetOrCreate(ctx, userID).InQuietHours(hour)
}

// ShouldSendSurvey is the gate consulted before a periodic cycle starts:
// false while the interval has not elapsed since the last logged event,
// during quiet hours, and on weekends per the weekend mode (off suppresses
// entirely, reduced requires twice the interval). Explicit /start cycles do
// not consult this gate.
func (s *Store) ShouldSendSurvey(ctx context.Context, userID int64, lastEventTime time.Time) bool {
	cfg := s.GetOrCreate(ctx, userID)
	now := s.now()
	elapsed := now.Sub(lastEventTime)

	if elapsed < cfg.Interval() {
		return false
	}

	local := now.In(s.userLocation(ctx, userID))
	if cfg.InQuietHours(local.Hour()) {
		return false
	}

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		switch cfg.WeekendMode {
		case model.WeekendOff:
			return false
		case model.WeekendReduced:
			return elapsed >= 2*cfg.Interval()
		}
	}
	return true
}

// userLocation resolves the user's timezone, falling back to UTC.
func (s *Store) userLocation(ctx context.Context, userID int64) *time.Location {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil || user == nil || user.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		s.logger.Warn().Str("timezone", user.Timezone).Int64("user_id", userID).Msg("invalid timezone, using UTC")
		return time.UTC
	}
	return loc
}
