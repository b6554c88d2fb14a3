package service

import "errors"

// Authentication-flow errors returned across the service boundary. Handlers
// map these onto HTTP status codes; anything else is treated as an internal
// store failure and surfaced generically.
var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrRateLimited        = errors.New("too many failed login attempts, try again later")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrNotFound           = errors.New("user not found")
)
