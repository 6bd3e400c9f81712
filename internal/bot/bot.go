// Package bot is the Telegram adapter: it classifies inbound messages into
// the survey engine's closed answer set, renders prompts and notifications,
// and exposes the settings command surface. It holds no survey logic of its
// own.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"moodpulse/internal/database"
	"moodpulse/internal/schedule"
	"moodpulse/internal/session"
	"moodpulse/internal/settings"
	"moodpulse/internal/survey"
)

type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

// Bot wires Telegram updates to the survey engine.
type Bot struct {
	tg         telegramClient
	db         *database.DB
	settings   *settings.Store
	sessions   session.Store
	machine    *survey.Machine
	sched      *schedule.Manager
	logger     *zerolog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// New creates the bot over the real Telegram API.
func New(token string, debug bool, db *database.DB, st *settings.Store, sessions session.Store, ttl time.Duration, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, db, st, sessions, ttl, logger), nil
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, db *database.DB, st *settings.Store, sessions session.Store, ttl time.Duration, logger *zerolog.Logger) *Bot {
	return newBot(tg, db, st, sessions, ttl, logger)
}

func newBot(tg telegramClient, db *database.DB, st *settings.Store, sessions session.Store, ttl time.Duration, logger *zerolog.Logger) *Bot {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Bot{
		tg:         tg,
		db:         db,
		settings:   st,
		sessions:   sessions,
		sessionTTL: ttl,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Attach connects the survey machine and schedule manager. Called once
// during startup, after both exist.
func (b *Bot) Attach(machine *survey.Machine, sched *schedule.Manager) {
	b.machine = machine
	b.sched = sched
}

// Start consumes Telegram updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Msg("bot started")
	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			b.logger.Info().Msg("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, userID)
		case "menu":
			b.sendMainMenu(userID)
		case "help":
			b.sendHelp(userID)
		default:
			b.logger.Debug().Str("command", msg.Command()).Int64("user_id", userID).Msg("unknown command")
		}
		return
	}

	in := classify(msg.Text)
	switch in.kind {
	case intentTimezone:
		if in.value == "" {
			b.askTimezone(ctx, userID, true)
		} else {
			b.handleTimezoneSelected(ctx, userID, in.value)
		}

	case intentAnswer:
		b.machine.HandleAnswer(ctx, survey.Answer{
			UserID: userID,
			Kind:   in.answerKind,
			Value:  in.value,
			Time:   b.now(),
		})

	case intentMainMenu:
		b.sendMainMenu(userID)

	case intentSettingsMenu:
		b.sendSettingsMenu(ctx, userID)

	case intentHelp:
		b.sendHelp(userID)

	case intentIntervalMenu:
		b.sendIntervalMenu(ctx, userID)

	case intentSetInterval:
		b.handleIntervalSelected(ctx, userID, in.interval)

	case intentQuietMenu:
		b.sendQuietHoursMenu(ctx, userID)

	case intentSetQuietHours:
		b.applySettings(ctx, userID, settings.Patch{QuietHours: in.quiet})

	case intentClearQuietHours:
		b.applySettings(ctx, userID, settings.Patch{ClearQuietHours: true})

	case intentWeekendMenu:
		b.send(userID, "📅 How should weekends be handled?\n\nreduced waits twice the interval, off pauses surveys entirely.", weekendKeyboard())

	case intentSetWeekendMode:
		mode := in.weekend
		b.applySettings(ctx, userID, settings.Patch{WeekendMode: &mode})

	case intentToggleReminders:
		current := b.settings.GetOrCreate(ctx, userID).ReminderEnabled
		next := !current
		b.applySettings(ctx, userID, settings.Patch{ReminderEnabled: &next})

	case intentUnknown:
		b.logger.Debug().Int64("user_id", userID).Msg("unclassified message ignored")
	}
}

// handleStart greets the user and asks for a timezone. The first-survey flag
// makes the survey start right after the timezone pick, skipping the
// cadence gate.
func (b *Bot) handleStart(ctx context.Context, userID int64) {
	if err := b.sessions.Set(ctx, userID, session.FlagFirstSurvey, b.sessionTTL); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to set first-survey flag")
	}
	b.send(userID,
		"🤖 Hi! I check in a few times a day to track what you do and how you feel.\n\n🌍 Pick your timezone to begin:",
		timezoneKeyboard())
}

// askTimezone re-asks the timezone; fromSettings routes the follow-up back
// to the settings menu instead of a survey.
func (b *Bot) askTimezone(ctx context.Context, userID int64, fromSettings bool) {
	if fromSettings {
		if err := b.sessions.Set(ctx, userID, session.FlagFromSettings, b.sessionTTL); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to set from-settings flag")
		}
	}
	b.send(userID, "🌍 Pick a timezone:", timezoneKeyboard())
}

func (b *Bot) handleTimezoneSelected(ctx context.Context, userID int64, tz string) {
	if !b.db.SaveUser(ctx, userID, tz) {
		b.send(userID, "Could not save your settings right now. Please try again in a minute.", nil)
		return
	}
	b.send(userID, fmt.Sprintf("Timezone %s saved.", tz), tgbotapi.NewRemoveKeyboard(false))

	fromSettings, err := b.sessions.Consume(ctx, userID, session.FlagFromSettings)
	if err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to read from-settings flag")
	}
	firstSurvey, err := b.sessions.Consume(ctx, userID, session.FlagFirstSurvey)
	if err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to read first-survey flag")
	}

	switch {
	case fromSettings:
		b.sendSettingsMenu(ctx, userID)
	case firstSurvey:
		b.machine.BeginCycle(ctx, userID)
	default:
		last := b.db.GetLastEvent(ctx, userID)
		if last == nil || b.settings.ShouldSendSurvey(ctx, userID, last.Timestamp) {
			b.machine.BeginCycle(ctx, userID)
		} else {
			b.sendMainMenu(userID)
		}
	}
}

func (b *Bot) handleIntervalSelected(ctx context.Context, userID int64, minutes int) {
	if !b.settings.Update(ctx, userID, settings.Patch{SurveyInterval: &minutes}) {
		b.send(userID, "Could not save your settings right now. Please try again in a minute.", nil)
		return
	}
	b.sched.RescheduleAfterIntervalChange(ctx, userID)
	b.send(userID, fmt.Sprintf("✅ Survey interval set to %d minutes. Pending timers rescheduled.", minutes), nil)
	b.sendSettingsMenu(ctx, userID)
}

func (b *Bot) applySettings(ctx context.Context, userID int64, patch settings.Patch) {
	if !b.settings.Update(ctx, userID, patch) {
		b.send(userID, "Could not save your settings right now. Please try again in a minute.", nil)
		return
	}
	b.send(userID, "✅ Settings saved.", nil)
	b.sendSettingsMenu(ctx, userID)
}

func (b *Bot) sendMainMenu(userID int64) {
	b.send(userID,
		"📱 Main menu:\n\n⚙️ Settings — cadence, quiet hours, weekends\nℹ️ Help — how the check-ins work",
		mainMenuKeyboard())
}

func (b *Bot) sendSettingsMenu(ctx context.Context, userID int64) {
	cfg := b.settings.GetOrCreate(ctx, userID)

	quiet := "off"
	if cfg.QuietHoursSet() {
		quiet = fmt.Sprintf("%02d:00 - %02d:00", *cfg.QuietHoursStart, *cfg.QuietHoursEnd)
	}
	reminders := "on"
	if !cfg.ReminderEnabled {
		reminders = "off"
	}

	text := fmt.Sprintf(
		"⚙️ SETTINGS\n\n⏰ Survey interval: %d min\n🔕 Quiet hours: %s\n📅 Weekends: %s\n🔔 Reminders: %s\n\nPick what to change:",
		cfg.SurveyInterval, quiet, cfg.WeekendMode, reminders)
	b.send(userID, text, settingsKeyboard())
}

func (b *Bot) sendIntervalMenu(ctx context.Context, userID int64) {
	cfg := b.settings.GetOrCreate(ctx, userID)
	b.send(userID,
		fmt.Sprintf("⏰ SURVEY INTERVAL\n\nCurrent: %d minutes.\n\nHow often should I check in?", cfg.SurveyInterval),
		intervalKeyboard())
}

func (b *Bot) sendQuietHoursMenu(ctx context.Context, userID int64) {
	cfg := b.settings.GetOrCreate(ctx, userID)
	quiet := "off"
	if cfg.QuietHoursSet() {
		quiet = fmt.Sprintf("%02d:00 - %02d:00", *cfg.QuietHoursStart, *cfg.QuietHoursEnd)
	}
	b.send(userID,
		fmt.Sprintf("🔕 QUIET HOURS\n\nCurrent: %s.\n\nNo surveys start during quiet hours.", quiet),
		quietHoursKeyboard())
}

func (b *Bot) sendHelp(userID int64) {
	b.send(userID,
		"ℹ️ How this works:\n\n"+
			"On your chosen cadence I ask three quick questions:\n"+
			"• what you are doing\n"+
			"• how you feel emotionally (1-10)\n"+
			"• how you feel physically (1-5)\n\n"+
			"Commands:\n/start — restart and pick a timezone\n/menu — main menu\n/help — this message",
		nil)
}

// send delivers one message, logging failures. Keyboard may be any reply
// markup or nil.
func (b *Bot) send(userID int64, text string, keyboard any) {
	msg := tgbotapi.NewMessage(userID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to send message")
	}
}
