package model

import "time"

// WeekendMode controls survey cadence on Saturday and Sunday.
type WeekendMode string

const (
	WeekendNormal  WeekendMode = "normal"  // same cadence as weekdays
	WeekendReduced WeekendMode = "reduced" // require twice the interval
	WeekendOff     WeekendMode = "off"     // no surveys on weekends
)

// Valid reports whether the mode is one of the known values.
func (m WeekendMode) Valid() bool {
	switch m {
	case WeekendNormal, WeekendReduced, WeekendOff:
		return true
	default:
		return false
	}
}

// UserSettings holds per-user survey cadence preferences. One row per user,
// created lazily with defaults on first read.
//
// Invariant: QuietHoursStart and QuietHoursEnd are both set or both nil.
type UserSettings struct {
	ID              int64
	UserID          int64
	SurveyInterval  int // minutes between cycles: 30, 60, 120, ...
	QuietHoursStart *int
	QuietHoursEnd   *int
	WeekendMode     WeekendMode
	ReminderEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultSurveyInterval is the interval assigned when a user has no settings.
const DefaultSurveyInterval = 60

// DefaultUserSettings returns the defaults persisted on first read:
// hourly surveys, no quiet hours, normal weekends, reminders on.
func DefaultUserSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:          userID,
		SurveyInterval:  DefaultSurveyInterval,
		WeekendMode:     WeekendNormal,
		ReminderEnabled: true,
	}
}

// Interval returns the survey interval as a duration.
func (s *UserSettings) Interval() time.Duration {
	return time.Duration(s.SurveyInterval) * time.Minute
}

// QuietHoursSet reports whether a quiet-hours window is configured.
func (s *UserSettings) QuietHoursSet() bool {
	return s.QuietHoursStart != nil && s.QuietHoursEnd != nil
}

// InQuietHours reports whether the given clock hour falls inside the
// configured window. A window with start > end wraps past midnight:
// {23, 7} covers 23:00..23:59 and 00:00..07:59.
func (s *UserSettings) InQuietHours(hour int) bool {
	if !s.QuietHoursSet() {
		return false
	}
	start, end := *s.QuietHoursStart, *s.QuietHoursEnd
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
