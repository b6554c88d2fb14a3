package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/store"
	"github.com/flindersec/mfad/internal/mfa/store/drivers/sqlite"
	"github.com/flindersec/mfad/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser(username string) domain.User {
	now := time.Now().UTC()
	return domain.User{
		Username:       username,
		CredentialHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		TOTPSecret:     "JBSWY3DPEHPK3PXP",
		MFAEnabled:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch", func(t *testing.T) {
		id, err := s.Users().CreateUser(ctx, newTestUser("alice"))
		require.NoError(t, err)
		require.Positive(t, id)

		byID, err := s.Users().GetUserByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)
		require.True(t, byID.MFAEnabled)

		byName, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, id, byName.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.Users().CreateUser(ctx, newTestUser("alice"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing user maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserByID(ctx, 9999)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update TOTP secret", func(t *testing.T) {
		id, err := s.Users().CreateUser(ctx, newTestUser("bob"))
		require.NoError(t, err)

		require.NoError(t, s.Users().UpdateTOTPSecret(ctx, id, "NEWSECRETNEWSECRET"))

		u, err := s.Users().GetUserByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "NEWSECRETNEWSECRET", u.TOTPSecret)

		require.ErrorIs(t, s.Users().UpdateTOTPSecret(ctx, 9999, "x"), store.ErrNotFound)
	})

	t.Run("toggle MFA", func(t *testing.T) {
		id, err := s.Users().CreateUser(ctx, newTestUser("carol"))
		require.NoError(t, err)

		require.NoError(t, s.Users().SetMFAEnabled(ctx, id, false))
		u, err := s.Users().GetUserByID(ctx, id)
		require.NoError(t, err)
		require.False(t, u.MFAEnabled)

		require.ErrorIs(t, s.Users().SetMFAEnabled(ctx, 9999, true), store.ErrNotFound)
	})

	t.Run("list users", func(t *testing.T) {
		users, err := s.Users().ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
	})

	t.Run("delete user", func(t *testing.T) {
		id, err := s.Users().CreateUser(ctx, newTestUser("dave"))
		require.NoError(t, err)

		require.NoError(t, s.Users().DeleteUser(ctx, id))
		_, err = s.Users().GetUserByID(ctx, id)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, s.Users().DeleteUser(ctx, id), store.ErrNotFound)
	})
}

func TestSessionsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	userID, err := s.Users().CreateUser(ctx, newTestUser("alice"))
	require.NoError(t, err)

	now := time.Now().UTC()

	newSession := func(token string, expiresAt time.Time) domain.Session {
		return domain.Session{
			ID:        idx.New().String(),
			UserID:    userID,
			Token:     token,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
	}

	t.Run("create and resolve", func(t *testing.T) {
		require.NoError(t, s.Sessions().CreateSession(ctx, newSession("tok-live", now.Add(24*time.Hour))))

		sess, err := s.Sessions().GetSessionByToken(ctx, "tok-live")
		require.NoError(t, err)
		require.Equal(t, userID, sess.UserID)

		u, err := s.Sessions().GetUserBySessionToken(ctx, "tok-live", now)
		require.NoError(t, err)
		require.Equal(t, "alice", u.Username)
	})

	t.Run("duplicate token rejected", func(t *testing.T) {
		err := s.Sessions().CreateSession(ctx, newSession("tok-live", now.Add(24*time.Hour)))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("expired session does not resolve a user", func(t *testing.T) {
		require.NoError(t, s.Sessions().CreateSession(ctx, newSession("tok-expired", now.Add(-time.Minute))))

		_, err := s.Sessions().GetUserBySessionToken(ctx, "tok-expired", now)
		require.ErrorIs(t, err, store.ErrNotFound)

		// The raw session row is still readable.
		_, err = s.Sessions().GetSessionByToken(ctx, "tok-expired")
		require.NoError(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := s.Sessions().GetUserBySessionToken(ctx, "tok-missing", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete by token", func(t *testing.T) {
		require.NoError(t, s.Sessions().CreateSession(ctx, newSession("tok-logout", now.Add(time.Hour))))
		require.NoError(t, s.Sessions().DeleteSessionByToken(ctx, "tok-logout"))
		require.ErrorIs(t, s.Sessions().DeleteSessionByToken(ctx, "tok-logout"), store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		deleted, err := s.Sessions().DeleteExpiredSessions(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, deleted, "only tok-expired should be purged")

		_, err = s.Sessions().GetSessionByToken(ctx, "tok-expired")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Sessions().GetSessionByToken(ctx, "tok-live")
		require.NoError(t, err)
	})

	t.Run("delete user sessions", func(t *testing.T) {
		require.NoError(t, s.Sessions().DeleteUserSessions(ctx, userID))
		_, err := s.Sessions().GetSessionByToken(ctx, "tok-live")
		require.ErrorIs(t, err, store.ErrNotFound)

		// Deleting for a user with no sessions is not an error.
		require.NoError(t, s.Sessions().DeleteUserSessions(ctx, userID))
	})

	t.Run("user_id is a weak reference", func(t *testing.T) {
		// A session row is allowed to outlive its user; the service layer
		// reclaims orphans during the delete cascade.
		const ghostID = int64(424242)

		require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
			ID:        idx.New().String(),
			UserID:    ghostID,
			Token:     "tok-orphan",
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}))

		// The raw row exists, but it cannot resolve to a user.
		_, err := s.Sessions().GetSessionByToken(ctx, "tok-orphan")
		require.NoError(t, err)
		_, err = s.Sessions().GetUserBySessionToken(ctx, "tok-orphan", now)
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Sessions().DeleteUserSessions(ctx, ghostID))
		_, err = s.Sessions().GetSessionByToken(ctx, "tok-orphan")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestLoginAttemptsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()

	record := func(username string, success bool, at time.Time) {
		t.Helper()
		require.NoError(t, s.LoginAttempts().RecordAttempt(ctx, domain.LoginAttempt{
			ID:          idx.New().String(),
			Username:    username,
			IPAddress:   "203.0.113.9",
			Success:     success,
			AttemptTime: at,
		}))
	}

	record("alice", false, now.Add(-20*time.Minute))
	record("alice", false, now.Add(-10*time.Minute))
	record("alice", false, now.Add(-5*time.Minute))
	record("alice", true, now.Add(-time.Minute))
	record("bob", false, now.Add(-time.Minute))

	t.Run("count recent failures respects cutoff", func(t *testing.T) {
		count, err := s.LoginAttempts().CountRecentFailures(ctx, "alice", now.Add(-15*time.Minute))
		require.NoError(t, err)
		require.Equal(t, 2, count, "the 20-minute-old failure and the success are excluded")
	})

	t.Run("counts are per username", func(t *testing.T) {
		count, err := s.LoginAttempts().CountRecentFailures(ctx, "bob", now.Add(-15*time.Minute))
		require.NoError(t, err)
		require.Equal(t, 1, count)

		count, err = s.LoginAttempts().CountRecentFailures(ctx, "nobody", now.Add(-15*time.Minute))
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("list newest first", func(t *testing.T) {
		attempts, err := s.LoginAttempts().ListAttemptsByUsername(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, attempts, 4)
		require.True(t, attempts[0].Success, "most recent attempt was the success")

		limited, err := s.LoginAttempts().ListAttemptsByUsername(ctx, "alice", 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
	})

	t.Run("delete before cutoff", func(t *testing.T) {
		deleted, err := s.LoginAttempts().DeleteAttemptsBefore(ctx, now.Add(-15*time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 1, deleted)
	})

	t.Run("delete by username", func(t *testing.T) {
		require.NoError(t, s.LoginAttempts().DeleteUserAttempts(ctx, "alice"))

		attempts, err := s.LoginAttempts().ListAttemptsByUsername(ctx, "alice", 10)
		require.NoError(t, err)
		require.Empty(t, attempts)

		remaining, err := s.LoginAttempts().ListAttemptsByUsername(ctx, "bob", 10)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("commit on success", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.Users().CreateUser(ctx, newTestUser("committed"))
			return err
		})
		require.NoError(t, err)

		_, err = s.Users().GetUserByUsername(ctx, "committed")
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		sentinel := context.Canceled
		err := s.WithTx(ctx, func(tx store.Tx) error {
			if _, err := tx.Users().CreateUser(ctx, newTestUser("rolledback")); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = s.Users().GetUserByUsername(ctx, "rolledback")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
