package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moodpulse/internal/notify"
)

// SendPrompt renders a survey question with its answer keyboard. Part of the
// notify.Transport implementation.
func (b *Bot) SendPrompt(ctx context.Context, userID int64, kind notify.PromptKind) error {
	var text string
	var keyboard tgbotapi.ReplyKeyboardMarkup

	switch kind {
	case notify.PromptActivity:
		text = "📊 Time for a check-in!\n\nWhat are you doing right now?"
		keyboard = activityKeyboard()
	case notify.PromptEmotion:
		text = "💭 How do you feel emotionally?\n\n1 is terrible, 10 is excellent."
		keyboard = moodKeyboard()
	case notify.PromptPhysical:
		text = "💪 And physically?\n\n1 is exhausted, 5 is energized."
		keyboard = physicalKeyboard()
	default:
		return fmt.Errorf("unknown prompt kind %q", kind)
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.tg.Send(msg)
	return err
}

// SendNotification renders an out-of-band notification. Part of the
// notify.Transport implementation.
func (b *Bot) SendNotification(ctx context.Context, userID int64, n notify.Notification) error {
	var text string

	switch n.Kind {
	case notify.NotificationReminder:
		text = fmt.Sprintf("⏰ Still there? Your check-in from %d minutes ago is waiting. Answer whenever you get a moment.", n.IntervalMinutes)
	case notify.NotificationMissed:
		text = fmt.Sprintf("😔 You missed a check-in, so I closed it after %d minutes. The next one will come on your usual schedule.", n.IntervalMinutes)
	case notify.NotificationCycleComplete:
		text = "✅ All done, thanks! See you at the next check-in."
	case notify.NotificationSettingsSaved:
		text = "✅ Settings saved."
	case notify.NotificationTryAgain:
		text = "⚠️ Something went wrong saving your answer. Please tap it again."
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	msg := tgbotapi.NewMessage(userID, text)
	if n.Kind == notify.NotificationCycleComplete {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := b.tg.Send(msg)
	return err
}
