package domain

import "time"

type User struct {
	ID             int64
	Username       string
	CredentialHash string // argon2 encoded
	TOTPSecret     string // base32 encoded
	MFAEnabled     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
