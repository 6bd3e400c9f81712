package model

import "time"

// EventType identifies a survey lifecycle event in the audit log.
type EventType string

const (
	// Prompts sent to the user, one per survey step.
	EventResponseActivity  EventType = "response_activity"
	EventResponseEmotional EventType = "response_emotional"
	EventResponsePhysical  EventType = "response_physical"

	// Answers received from the user.
	EventAnswerActivity  EventType = "answer_activity"
	EventAnswerEmotional EventType = "answer_emotional"
	EventAnswerPhysical  EventType = "answer_physical"
)

// IsAnswer reports whether the event is a user answer rather than a prompt.
func (e EventType) IsAnswer() bool {
	switch e {
	case EventAnswerActivity, EventAnswerEmotional, EventAnswerPhysical:
		return true
	default:
		return false
	}
}

// LogEntry is one append-only row of the survey audit trail. The complete
// ordered sequence per user is the source of truth for the state machine;
// rows are never updated or deleted.
type LogEntry struct {
	ID        int64
	UserID    int64
	EventType EventType
	Timestamp time.Time
	Details   string
}
