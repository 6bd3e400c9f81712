package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func replyRows(rows ...[]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboard = append(keyboard, buttons)
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}

func oneTime(markup tgbotapi.ReplyKeyboardMarkup) tgbotapi.ReplyKeyboardMarkup {
	markup.OneTimeKeyboard = true
	return markup
}

func timezoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"GMT+1", "GMT+2"},
		[]string{"GMT+3", "GMT+4"},
	))
}

func activityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"💼 Working / Studying", "📚 Reading"},
		[]string{"🏃 Exercising", "🚶 Walking"},
		[]string{"📺 Resting", "👥 Socializing"},
		[]string{"🎯 Other"},
	))
}

func moodKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"Excellent 10", "Great 9", "Good 8", "Fine 7", "Okay 6"},
		[]string{"So-so 5", "Meh 4", "Bad 3", "Awful 2", "Terrible 1"},
	))
}

func physicalKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"Energized 5", "Strong 4", "Normal 3", "Tired 2", "Exhausted 1"},
	))
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyRows(
		[]string{labelSettings},
		[]string{labelHelp},
	)
}

func settingsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyRows(
		[]string{labelChangeTimezone},
		[]string{labelInterval},
		[]string{labelQuietHours},
		[]string{labelWeekendMode},
		[]string{labelToggleReminder},
		[]string{labelMainMenu},
	)
}

func intervalKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"⚡ 30 minutes", "⏰ 1 hour"},
		[]string{"🕐 2 hours"},
		[]string{labelBackToSettings},
	))
}

func quietHoursKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"🌙 23:00 - 07:00", "🌛 22:00 - 08:00"},
		[]string{labelDisableQuiet},
		[]string{labelBackToSettings},
	))
}

func weekendKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(replyRows(
		[]string{"Weekends: normal"},
		[]string{"Weekends: reduced"},
		[]string{"Weekends: off"},
		[]string{labelBackToSettings},
	))
}
