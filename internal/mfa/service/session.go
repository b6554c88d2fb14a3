package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/store"
	"github.com/flindersec/mfad/pkg/cryptox"
	"github.com/flindersec/mfad/pkg/idx"
)

// DefaultSessionTTL is the fixed lifetime of a session. Expiry is absolute;
// validation never extends it.
const DefaultSessionTTL = 24 * time.Hour

// SessionService issues and validates opaque bearer sessions.
type SessionService struct {
	Store store.Store
	TTL   time.Duration // zero means DefaultSessionTTL
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultSessionTTL
	}
	return s.TTL
}

// Create issues a new session for the user with a fixed absolute expiry.
func (s *SessionService) Create(ctx context.Context, userID int64) (domain.Session, error) {
	token, err := cryptox.GenerateSessionToken()
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Validate resolves a token to its owning user. Expired or unknown tokens
// fail with ErrInvalidSession.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrInvalidSession
	}

	user, err := s.Store.Sessions().GetUserBySessionToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidSession
		}
		return domain.User{}, fmt.Errorf("failed to validate session: %w", err)
	}
	return user, nil
}

// Invalidate deletes the session for a token. Unknown tokens are a no-op
// success so logout is idempotent.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.Store.Sessions().DeleteSessionByToken(ctx, token)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}
