package domain

import "time"

// Session is an authenticated login. The token is the opaque bearer
// credential; expiry is fixed at creation and never extended.
type Session struct {
	ID        string // ULID
	UserID    int64
	Token     string // hex encoded, unique
	ExpiresAt time.Time
	CreatedAt time.Time
}
