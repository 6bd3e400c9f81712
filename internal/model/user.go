package model

// User is a surveyed Telegram user. Created on first contact; only the
// timezone is ever mutated afterwards.
type User struct {
	ID       int64
	UserID   int64
	Timezone string // IANA name, empty when the user never picked one
}
