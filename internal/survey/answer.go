package survey

import "time"

// AnswerKind is the closed set of survey answers the adapter may hand to
// the machine. Classification from raw message text happens at the adapter
// boundary; the machine only ever sees these tags.
type AnswerKind string

const (
	AnswerActivity AnswerKind = "activity"
	AnswerEmotion  AnswerKind = "emotion"
	AnswerPhysical AnswerKind = "physical"
)

// Answer is one classified inbound answer.
type Answer struct {
	UserID int64
	Kind   AnswerKind
	Value  string
	Time   time.Time
}
