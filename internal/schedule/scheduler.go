// Package schedule owns the one-shot cycle timers and the periodic sweep
// over pending mood requests. Timers are identified by (user, job kind);
// arming a timer replaces any existing one with the same identity, so a
// duplicate schedule request is a replacement, never an error.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"moodpulse/internal/database"
	"moodpulse/internal/metrics"
	"moodpulse/internal/notify"
	"moodpulse/internal/settings"
)

// CycleStarter begins a new survey cycle. Implemented by survey.Machine.
type CycleStarter interface {
	BeginCycle(ctx context.Context, userID int64)
}

// Notifier delivers sweep notifications (reminders, missed-cycle notices).
type Notifier interface {
	SendNotification(ctx context.Context, userID int64, n notify.Notification) bool
}

// JobKind names a timer's target; together with the user id it identifies
// the timer in the registry.
type JobKind string

const JobBeginCycle JobKind = "begin_cycle"

// Config tunes the manager.
type Config struct {
	// SweepInterval is how often pending requests are scanned.
	SweepInterval time.Duration
	// CatchUpDelay is how soon an overdue cycle fires after a settings change.
	CatchUpDelay time.Duration
	// GateRetryDelay is how long a gated-out timer waits before trying again
	// (quiet hours, weekend suppression).
	GateRetryDelay time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:  10 * time.Minute,
		CatchUpDelay:   1 * time.Minute,
		GateRetryDelay: 15 * time.Minute,
	}
}

type timerKey struct {
	userID int64
	kind   JobKind
}

type armedJob struct {
	id    string
	timer *time.Timer
}

// Manager schedules cycle starts and runs the pending-request sweep.
type Manager struct {
	config   Config
	db       *database.DB
	settings *settings.Store
	notifier Notifier
	starter  CycleStarter
	logger   *zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	timers  map[timerKey]*armedJob
	baseCtx context.Context
	running bool
	stopCh  chan struct{}
}

// NewManager creates the manager. The cycle starter is attached afterwards
// with SetStarter because the survey machine and the manager reference each
// other.
func NewManager(config Config, db *database.DB, st *settings.Store, notifier Notifier, logger *zerolog.Logger) *Manager {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 10 * time.Minute
	}
	if config.CatchUpDelay <= 0 {
		config.CatchUpDelay = time.Minute
	}
	if config.GateRetryDelay <= 0 {
		config.GateRetryDelay = 15 * time.Minute
	}
	return &Manager{
		config:   config,
		db:       db,
		settings: st,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		timers:   make(map[timerKey]*armedJob),
		baseCtx:  context.Background(),
		stopCh:   make(chan struct{}),
	}
}

// SetStarter attaches the survey machine entry point.
func (m *Manager) SetStarter(starter CycleStarter) {
	m.starter = starter
}

// WithClock overrides the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Run executes the sweep loop until the context is cancelled or Stop is
// called.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.baseCtx = ctx
	m.mu.Unlock()

	m.logger.Info().Dur("sweep_interval", m.config.SweepInterval).Msg("schedule manager started")

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("schedule manager stopped by context")
			return
		case <-m.stopCh:
			m.logger.Info().Msg("schedule manager stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Stop terminates the sweep loop and cancels all armed timers.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.running {
		m.running = false
		close(m.stopCh)
	}
	for key, job := range m.timers {
		job.timer.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()
}

// ArmNextCycle schedules BeginCycle for the user after the given delay,
// replacing any timer already armed for the same user.
func (m *Manager) ArmNextCycle(userID int64, after time.Duration) {
	id := uuid.NewString()

	m.mu.Lock()
	key := timerKey{userID: userID, kind: JobBeginCycle}
	if existing, ok := m.timers[key]; ok {
		existing.timer.Stop()
	}
	timer := time.AfterFunc(after, func() { m.fireBeginCycle(userID, id) })
	m.timers[key] = &armedJob{id: id, timer: timer}
	m.mu.Unlock()

	m.logger.Debug().
		Int64("user_id", userID).
		Str("job_id", id).
		Dur("after", after).
		Msg("next cycle armed")
}

// CancelUserJobs removes all armed timers for the user. Best effort: a timer
// already mid-fire is not interruptible.
func (m *Manager) CancelUserJobs(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancelled := 0
	for key, job := range m.timers {
		if key.userID == userID {
			job.timer.Stop()
			delete(m.timers, key)
			cancelled++
		}
	}
	if cancelled > 0 {
		m.logger.Info().Int64("user_id", userID).Int("cancelled", cancelled).Msg("cancelled armed jobs")
	}
	return cancelled
}

// ArmedJobs returns the number of armed timers for the user.
func (m *Manager) ArmedJobs(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.timers {
		if key.userID == userID {
			n++
		}
	}
	return n
}

// RescheduleAfterIntervalChange cancels the user's armed timers and, when a
// cycle is already due under the new interval, arms one for the catch-up
// delay. Otherwise nothing is armed: the next completed cycle or the sweep
// naturally resumes the cadence.
func (m *Manager) RescheduleAfterIntervalChange(ctx context.Context, userID int64) {
	m.CancelUserJobs(userID)

	last := m.db.GetLastEvent(ctx, userID)
	if last == nil {
		return
	}
	if m.settings.ShouldSendSurvey(ctx, userID, last.Timestamp) {
		m.ArmNextCycle(userID, m.config.CatchUpDelay)
		m.logger.Info().Int64("user_id", userID).Msg("survey already due, armed catch-up cycle")
	}
}

// fireBeginCycle runs when a one-shot timer elapses. The periodic path is
// gated by ShouldSendSurvey; when gated out the timer re-arms itself for a
// later attempt instead of dropping the cycle.
func (m *Manager) fireBeginCycle(userID int64, jobID string) {
	m.mu.Lock()
	key := timerKey{userID: userID, kind: JobBeginCycle}
	if job, ok := m.timers[key]; ok && job.id == jobID {
		delete(m.timers, key)
	}
	ctx := m.baseCtx
	m.mu.Unlock()

	last := m.db.GetLastEvent(ctx, userID)
	if last != nil && !m.settings.ShouldSendSurvey(ctx, userID, last.Timestamp) {
		m.logger.Debug().
			Int64("user_id", userID).
			Str("job_id", jobID).
			Dur("retry_in", m.config.GateRetryDelay).
			Msg("cycle gated out, re-arming")
		m.ArmNextCycle(userID, m.config.GateRetryDelay)
		return
	}

	if m.starter == nil {
		m.logger.Error().Int64("user_id", userID).Msg("no cycle starter attached")
		return
	}
	m.starter.BeginCycle(ctx, userID)
}

// Sweep scans all pending mood requests once. Per request, with the user's
// interval I and elapsed = now - request_time:
//
//	elapsed <= I       nothing to do
//	I < elapsed <= 2I  reminder (resent on later sweeps; at-least-once)
//	elapsed > 2I       terminal not_answered plus one missed notification
func (m *Manager) Sweep(ctx context.Context) {
	start := time.Now()
	now := m.now()

	pending := m.db.GetPendingRequests(ctx)
	metrics.SetPendingRequests(len(pending))

	reminded, timedOut := 0, 0
	for i := range pending {
		select {
		case <-ctx.Done():
			m.logger.Info().Int("processed", reminded+timedOut).Msg("sweep interrupted")
			return
		default:
		}

		req := &pending[i]
		cfg := m.settings.GetOrCreate(ctx, req.UserID)
		interval := cfg.Interval()
		elapsed := req.Age(now)

		switch {
		case elapsed <= interval:
			// Still within the answer window.

		case elapsed <= 2*interval:
			if !cfg.ReminderEnabled {
				continue
			}
			if m.notifier.SendNotification(ctx, req.UserID, notify.Notification{
				Kind:            notify.NotificationReminder,
				IntervalMinutes: cfg.SurveyInterval,
			}) {
				metrics.IncReminderSent()
				reminded++
			}

		default:
			found, ok := m.db.MarkRequestUnanswered(ctx, req.UserID, req.RequestTime)
			if !found || !ok {
				continue
			}
			metrics.IncRequestTimedOut()
			timedOut++
			m.notifier.SendNotification(ctx, req.UserID, notify.Notification{
				Kind:            notify.NotificationMissed,
				IntervalMinutes: 2 * cfg.SurveyInterval,
			})
		}
	}

	metrics.ObserveSweepDuration(time.Since(start).Seconds())
	if reminded > 0 || timedOut > 0 {
		m.logger.Info().
			Int("pending", len(pending)).
			Int("reminded", reminded).
			Int("timed_out", timedOut).
			Msg("sweep completed")
	}
}
