// Package notify defines the outbound message kinds the survey engine emits
// and a rate-limited, retrying sender around the transport that delivers
// them. The engine only picks kinds; rendering text and keyboards is the
// transport's job.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// PromptKind identifies a survey question to put to the user.
type PromptKind string

const (
	PromptActivity PromptKind = "activity"
	PromptEmotion  PromptKind = "emotion"
	PromptPhysical PromptKind = "physical"
)

// NotificationKind identifies an out-of-band notification.
type NotificationKind string

const (
	NotificationReminder      NotificationKind = "reminder"       // pending answer overdue
	NotificationMissed        NotificationKind = "missed"         // cycle timed out
	NotificationCycleComplete NotificationKind = "cycle_complete" // all three answers recorded
	NotificationSettingsSaved NotificationKind = "settings_saved"
	NotificationTryAgain      NotificationKind = "try_again" // persistence gave up, user may retry
)

// Notification is a kind plus the values the transport may interpolate.
type Notification struct {
	Kind            NotificationKind
	IntervalMinutes int // set for reminder and missed notifications
}

// Transport delivers prompts and notifications to a user. Implemented by
// the Telegram adapter; replaced by a recorder in tests.
type Transport interface {
	SendPrompt(ctx context.Context, userID int64, kind PromptKind) error
	SendNotification(ctx context.Context, userID int64, n Notification) error
}

// SenderConfig tunes the outbound rate limit and retry policy.
type SenderConfig struct {
	Rate        rate.Limit // messages per second across all users
	Burst       int
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultSenderConfig matches Telegram's broadcast guidance: up to 20
// messages per second with a modest burst, three bounded retries.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Rate:       20,
		Burst:      30,
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			250 * time.Millisecond,
			1 * time.Second,
			3 * time.Second,
		},
	}
}

// Sender wraps a Transport with rate limiting and bounded retry. Delivery
// failures never propagate past it as errors a user would see; callers get
// a boolean and the sweep simply tries again on its next pass.
type Sender struct {
	transport Transport
	limiter   *rate.Limiter
	config    SenderConfig
	logger    *zerolog.Logger
}

// NewSender creates a sender over the given transport.
func NewSender(transport Transport, config SenderConfig, logger *zerolog.Logger) *Sender {
	return &Sender{
		transport: transport,
		limiter:   rate.NewLimiter(config.Rate, config.Burst),
		config:    config,
		logger:    logger,
	}
}

// SendPrompt delivers a survey prompt, reporting success.
func (s *Sender) SendPrompt(ctx context.Context, userID int64, kind PromptKind) bool {
	return s.deliver(ctx, userID, string(kind), func() error {
		return s.transport.SendPrompt(ctx, userID, kind)
	})
}

// SendNotification delivers a notification, reporting success.
func (s *Sender) SendNotification(ctx context.Context, userID int64, n Notification) bool {
	return s.deliver(ctx, userID, string(n.Kind), func() error {
		return s.transport.SendNotification(ctx, userID, n)
	})
}

func (s *Sender) deliver(ctx context.Context, userID int64, kind string, send func() error) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		return false
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		lastErr = send()
		if lastErr == nil {
			return true
		}
		if attempt < s.config.MaxRetries {
			delay := s.config.RetryDelays[min(attempt, len(s.config.RetryDelays)-1)]
			s.logger.Warn().
				Err(lastErr).
				Int64("user_id", userID).
				Str("kind", kind).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("send failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false
			}
		}
	}

	s.logger.Error().
		Err(lastErr).
		Int64("user_id", userID).
		Str("kind", kind).
		Msg("send failed after retries")
	return false
}
