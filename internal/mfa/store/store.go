package store

import (
	"context"
	"errors"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to make it obvious when code is running inside a transaction
// versus against the pool.
type Store interface {
	Users() Users
	Sessions() Sessions
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user and returns the assigned row id.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByUsername is used during login and admin lookups.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns all users ordered by creation date (oldest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateTOTPSecret replaces the TOTP secret and bumps updated_at.
	UpdateTOTPSecret(ctx context.Context, id int64, secret string) error

	// SetMFAEnabled toggles the MFA requirement and bumps updated_at.
	SetMFAEnabled(ctx context.Context, id int64, enabled bool) error

	// DeleteUser removes the user row only; callers are responsible for
	// clearing sessions and attempts first.
	DeleteUser(ctx context.Context, id int64) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByToken returns the session for a token regardless of expiry.
	GetSessionByToken(ctx context.Context, token string) (domain.Session, error)

	// GetUserBySessionToken resolves a token to its user, only when the
	// session has not expired at the given reference time.
	GetUserBySessionToken(ctx context.Context, token string, now time.Time) (domain.User, error)

	// DeleteSessionByToken removes a single session (logout).
	DeleteSessionByToken(ctx context.Context, token string) error

	// DeleteUserSessions removes every session belonging to a user.
	DeleteUserSessions(ctx context.Context, userID int64) error

	// DeleteExpiredSessions removes sessions expired at the given reference
	// time and returns how many were deleted (housekeeping).
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type LoginAttempts interface {
	// RecordAttempt writes a single attempt audit row.
	RecordAttempt(ctx context.Context, a domain.LoginAttempt) error

	// CountRecentFailures counts failed attempts for a username at or after
	// the cutoff. Used for lockout decisions.
	CountRecentFailures(ctx context.Context, username string, cutoff time.Time) (int, error)

	// ListAttemptsByUsername returns attempts for a username, newest first,
	// capped at limit.
	ListAttemptsByUsername(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error)

	// DeleteUserAttempts removes every attempt recorded for a username.
	DeleteUserAttempts(ctx context.Context, username string) error

	// DeleteAttemptsBefore removes attempts older than the cutoff and
	// returns how many were deleted (housekeeping).
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
