package model

import "time"

// RequestStatus is the lifecycle state of a mood request.
type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "pending"
	RequestStatusAnswered    RequestStatus = "answered"
	RequestStatusNotAnswered RequestStatus = "not_answered"
)

// Terminal reports whether the status can no longer change.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAnswered || s == RequestStatusNotAnswered
}

// MoodRequest marks a survey cycle in flight awaiting the emotional answer.
// It is created in the same transaction that records the activity answer,
// which is what keeps "at most one pending request per user" true under
// single-process execution.
type MoodRequest struct {
	ID           int64
	UserID       int64
	RequestTime  time.Time
	ResponseTime *time.Time
	Status       RequestStatus
}

// Age returns how long the request has been waiting relative to now.
func (r *MoodRequest) Age(now time.Time) time.Duration {
	return now.Sub(r.RequestTime)
}
