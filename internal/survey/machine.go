// Package survey drives a user through the activity → emotion → physical
// question cycle. The machine keeps no in-memory position: the current step
// is inferred from the persisted log and the presence of a pending mood
// request, so a restart loses nothing.
package survey

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"moodpulse/internal/database"
	"moodpulse/internal/metrics"
	"moodpulse/internal/model"
	"moodpulse/internal/notify"
	"moodpulse/internal/settings"
)

// Scheduler arms the one-shot timer that starts the next cycle.
type Scheduler interface {
	ArmNextCycle(userID int64, after time.Duration)
}

// MessageSender delivers prompts and notifications; failures are reported
// as booleans, never raised.
type MessageSender interface {
	SendPrompt(ctx context.Context, userID int64, kind notify.PromptKind) bool
	SendNotification(ctx context.Context, userID int64, n notify.Notification) bool
}

// Machine is the survey state machine for all users.
type Machine struct {
	db        *database.DB
	settings  *settings.Store
	sender    MessageSender
	scheduler Scheduler
	logger    *zerolog.Logger
	now       func() time.Time
}

// New creates the machine. The scheduler and sender are injected so tests
// can observe what the machine asks for.
func New(db *database.DB, st *settings.Store, sender MessageSender, scheduler Scheduler, logger *zerolog.Logger) *Machine {
	return &Machine{
		db:        db,
		settings:  st,
		sender:    sender,
		scheduler: scheduler,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// HandleAnswer routes a classified answer to the matching transition.
func (m *Machine) HandleAnswer(ctx context.Context, a Answer) {
	switch a.Kind {
	case AnswerActivity:
		m.RecordActivity(ctx, a.UserID, a.Value, a.Time)
	case AnswerEmotion:
		m.RecordEmotion(ctx, a.UserID, a.Value, a.Time)
	case AnswerPhysical:
		m.RecordPhysical(ctx, a.UserID, a.Value, a.Time)
	default:
		m.logger.Warn().
			Int64("user_id", a.UserID).
			Str("kind", string(a.Kind)).
			Msg("unknown answer kind dropped")
	}
}

// BeginCycle starts a new cycle: logs that the activity question was asked
// and sends the activity prompt. The prompt is sent even when the log append
// fails; a missing response_activity row only skews gating, it does not
// break the cycle.
func (m *Machine) BeginCycle(ctx context.Context, userID int64) {
	if !m.db.SaveLog(ctx, userID, model.EventResponseActivity, m.now(), "") {
		m.logger.Error().Int64("user_id", userID).Msg("failed to log activity prompt")
	}
	m.sender.SendPrompt(ctx, userID, notify.PromptActivity)
	metrics.IncCycleStarted()
}

// RecordActivity records the activity answer and opens the pending mood
// request in one transaction, then asks the emotion question. When only the
// degraded half succeeded the cycle continues without timeout tracking;
// that is a warning, not a user-visible error.
func (m *Machine) RecordActivity(ctx context.Context, userID int64, activity string, ts time.Time) {
	saved, created := m.db.SaveActivityAndCreateMoodRequest(ctx, userID, activity, ts)
	if !saved {
		m.sender.SendNotification(ctx, userID, notify.Notification{Kind: notify.NotificationTryAgain})
		return
	}
	if !created {
		m.logger.Warn().
			Int64("user_id", userID).
			Msg("activity saved but mood request missing, cycle cannot time out")
	}
	metrics.IncAnswerRecorded("activity")
	m.promptEmotion(ctx, userID)
}

// RecordEmotion records the emotional answer and closes the latest pending
// mood request in one transaction, then asks the physical question. A
// missing pending request is tolerated: the answer is kept either way.
func (m *Machine) RecordEmotion(ctx context.Context, userID int64, mood string, ts time.Time) {
	saved, updated := m.db.SaveEmotionAndUpdateRequest(ctx, userID, mood, ts)
	if !saved {
		m.sender.SendNotification(ctx, userID, notify.Notification{Kind: notify.NotificationTryAgain})
		return
	}
	if !updated {
		m.logger.Warn().
			Int64("user_id", userID).
			Msg("emotion saved but no pending request to close")
	}
	metrics.IncAnswerRecorded("emotion")
	m.promptPhysical(ctx, userID)
}

// RecordPhysical records the physical answer, completing the cycle, and
// arms the next cycle per the user's interval. The append has no paired
// invariant, so it is a plain logged write.
func (m *Machine) RecordPhysical(ctx context.Context, userID int64, state string, ts time.Time) {
	if !m.db.SaveLog(ctx, userID, model.EventAnswerPhysical, ts, state) {
		m.sender.SendNotification(ctx, userID, notify.Notification{Kind: notify.NotificationTryAgain})
		return
	}
	metrics.IncAnswerRecorded("physical")
	m.sender.SendNotification(ctx, userID, notify.Notification{Kind: notify.NotificationCycleComplete})

	interval := m.settings.GetOrCreate(ctx, userID).Interval()
	m.scheduler.ArmNextCycle(userID, interval)
}

func (m *Machine) promptEmotion(ctx context.Context, userID int64) {
	if !m.db.SaveLog(ctx, userID, model.EventResponseEmotional, m.now(), "") {
		m.logger.Error().Int64("user_id", userID).Msg("failed to log emotion prompt")
	}
	m.sender.SendPrompt(ctx, userID, notify.PromptEmotion)
}

func (m *Machine) promptPhysical(ctx context.Context, userID int64) {
	if !m.db.SaveLog(ctx, userID, model.EventResponsePhysical, m.now(), "") {
		m.logger.Error().Int64("user_id", userID).Msg("failed to log physical prompt")
	}
	m.sender.SendPrompt(ctx, userID, notify.PromptPhysical)
}
