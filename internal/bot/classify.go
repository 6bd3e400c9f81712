package bot

import (
	"moodpulse/internal/model"
	"moodpulse/internal/settings"
	"moodpulse/internal/survey"
)

// intentKind is the closed set of things an inbound message can mean.
// Raw text is mapped to exactly one of these at the boundary; everything
// past this point dispatches on the tag, never on message text.
type intentKind int

const (
	intentUnknown intentKind = iota
	intentTimezone
	intentAnswer
	intentMainMenu
	intentSettingsMenu
	intentHelp
	intentIntervalMenu
	intentSetInterval
	intentQuietMenu
	intentSetQuietHours
	intentClearQuietHours
	intentWeekendMenu
	intentSetWeekendMode
	intentToggleReminders
)

// intent is one classified inbound message.
type intent struct {
	kind       intentKind
	answerKind survey.AnswerKind
	value      string // stored answer value or timezone name
	interval   int
	quiet      *settings.QuietHours
	weekend    model.WeekendMode
}

// Button labels. The maps double as the closed answer sets: a message is an
// answer if and only if its text is a key here.
var (
	timezoneOptions = map[string]string{
		"GMT+1": "Etc/GMT-1", // POSIX Etc zones negate the offset sign
		"GMT+2": "Etc/GMT-2",
		"GMT+3": "Etc/GMT-3",
		"GMT+4": "Etc/GMT-4",
	}

	activityOptions = map[string]string{
		"💼 Working / Studying": "Working / Studying",
		"📚 Reading":            "Reading",
		"🏃 Exercising":         "Exercising",
		"🚶 Walking":            "Walking",
		"📺 Resting":            "Resting",
		"👥 Socializing":        "Socializing",
		"🎯 Other":              "Other",
	}

	moodOptions = map[string]string{
		"Excellent 10": "Excellent",
		"Great 9":      "Great",
		"Good 8":       "Good",
		"Fine 7":       "Fine",
		"Okay 6":       "Okay",
		"So-so 5":      "So-so",
		"Meh 4":        "Meh",
		"Bad 3":        "Bad",
		"Awful 2":      "Awful",
		"Terrible 1":   "Terrible",
	}

	physicalOptions = map[string]string{
		"Energized 5": "Energized",
		"Strong 4":    "Strong",
		"Normal 3":    "Normal",
		"Tired 2":     "Tired",
		"Exhausted 1": "Exhausted",
	}

	intervalOptions = map[string]int{
		"⚡ 30 minutes": 30,
		"⏰ 1 hour":     60,
		"🕐 2 hours":    120,
	}

	quietOptions = map[string]settings.QuietHours{
		"🌙 23:00 - 07:00": {Start: 23, End: 7},
		"🌛 22:00 - 08:00": {Start: 22, End: 8},
	}

	weekendOptions = map[string]model.WeekendMode{
		"Weekends: normal":  model.WeekendNormal,
		"Weekends: reduced": model.WeekendReduced,
		"Weekends: off":     model.WeekendOff,
	}
)

const (
	labelMainMenu       = "📱 Main menu"
	labelSettings       = "⚙️ Settings"
	labelHelp           = "ℹ️ Help"
	labelChangeTimezone = "🌍 Change timezone"
	labelInterval       = "⏰ Survey interval"
	labelQuietHours     = "🔕 Quiet hours"
	labelWeekendMode    = "📅 Weekend mode"
	labelToggleReminder = "🔔 Toggle reminders"
	labelDisableQuiet   = "🔊 Disable quiet hours"
	labelBackToSettings = "🔙 Back to settings"
)

// classify maps message text to an intent.
func classify(text string) intent {
	if tz, ok := timezoneOptions[text]; ok {
		return intent{kind: intentTimezone, value: tz}
	}
	if v, ok := activityOptions[text]; ok {
		return intent{kind: intentAnswer, answerKind: survey.AnswerActivity, value: v}
	}
	if v, ok := moodOptions[text]; ok {
		return intent{kind: intentAnswer, answerKind: survey.AnswerEmotion, value: v}
	}
	if v, ok := physicalOptions[text]; ok {
		return intent{kind: intentAnswer, answerKind: survey.AnswerPhysical, value: v}
	}
	if minutes, ok := intervalOptions[text]; ok {
		return intent{kind: intentSetInterval, interval: minutes}
	}
	if window, ok := quietOptions[text]; ok {
		w := window
		return intent{kind: intentSetQuietHours, quiet: &w}
	}
	if mode, ok := weekendOptions[text]; ok {
		return intent{kind: intentSetWeekendMode, weekend: mode}
	}

	switch text {
	case labelMainMenu:
		return intent{kind: intentMainMenu}
	case labelSettings, labelBackToSettings:
		return intent{kind: intentSettingsMenu}
	case labelHelp:
		return intent{kind: intentHelp}
	case labelChangeTimezone:
		return intent{kind: intentTimezone} // empty value: ask, don't set
	case labelInterval:
		return intent{kind: intentIntervalMenu}
	case labelQuietHours:
		return intent{kind: intentQuietMenu}
	case labelWeekendMode:
		return intent{kind: intentWeekendMenu}
	case labelToggleReminder:
		return intent{kind: intentToggleReminders}
	case labelDisableQuiet:
		return intent{kind: intentClearQuietHours}
	}
	return intent{kind: intentUnknown}
}
