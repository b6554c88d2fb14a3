package domain

import "time"

// LoginAttempt is an audit record of a single authentication attempt,
// successful or not. Attempts are keyed by submitted username rather than
// user ID so attempts against unknown accounts are still counted.
type LoginAttempt struct {
	ID          string // ULID
	Username    string
	IPAddress   string
	Success     bool
	AttemptTime time.Time
}
