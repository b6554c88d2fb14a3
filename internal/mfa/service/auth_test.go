package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/store"
	"github.com/flindersec/mfad/internal/mfa/store/drivers/sqlite"
	"github.com/flindersec/mfad/pkg/idx"
	"github.com/flindersec/mfad/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) (*AuthService, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.DiscardHandler)
	auth := &AuthService{
		Store:    st,
		TOTP:     &totpx.Engine{Issuer: "Test"},
		Sessions: &SessionService{Store: st},
		Logger:   logger,
	}
	return auth, st
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	t.Run("success", func(t *testing.T) {
		res, err := auth.Register(ctx, "alice", "Secret123!")
		require.NoError(t, err)
		require.Positive(t, res.User.ID)
		require.Equal(t, "alice", res.User.Username)
		require.False(t, res.User.MFAEnabled, "MFA starts disabled")
		require.NotEmpty(t, res.Secret)
		require.Contains(t, res.ProvisioningURI, "otpauth://totp/")
		require.NotEmpty(t, res.QRCodePNG)
		require.NotEqual(t, "Secret123!", res.User.CredentialHash, "credential must be hashed")
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := auth.Register(ctx, "alice", "Another123!")
		require.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("username length", func(t *testing.T) {
		_, err := auth.Register(ctx, "ab", "Secret123!")
		require.ErrorIs(t, err, ErrValidation)

		long := make([]byte, 51)
		for i := range long {
			long[i] = 'a'
		}
		_, err = auth.Register(ctx, string(long), "Secret123!")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("credential strength", func(t *testing.T) {
		for _, weak := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
			_, err := auth.Register(ctx, "newuser", weak)
			require.ErrorIs(t, err, ErrValidation, "credential %q", weak)
		}
	})
}

func TestLoginWithoutMFA(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	_, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	t.Run("success ignores TOTP code when MFA disabled", func(t *testing.T) {
		res, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
		require.NoError(t, err)
		require.Equal(t, "alice", res.User.Username)
		require.NotEmpty(t, res.Token)
		require.True(t, res.ExpiresAt.After(time.Now()))
	})

	t.Run("unknown username and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := auth.Login(ctx, "nobody", "Secret123!", "", "203.0.113.1")
		_, errWrongPw := auth.Login(ctx, "alice", "WrongPass1", "", "203.0.113.1")

		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrongPw.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := auth.Login(ctx, "", "Secret123!", "", "")
		require.ErrorIs(t, err, ErrValidation)
		_, err = auth.Login(ctx, "alice", "", "", "")
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestLoginWithMFA(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	res, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)
	require.NoError(t, auth.EnableMFA(ctx, res.User.ID))

	t.Run("missing code fails", func(t *testing.T) {
		_, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("wrong code fails", func(t *testing.T) {
		_, err := auth.Login(ctx, "alice", "Secret123!", "000000", "203.0.113.1")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("current code succeeds", func(t *testing.T) {
		code, err := auth.TOTP.CurrentCode(res.Secret)
		require.NoError(t, err)

		login, err := auth.Login(ctx, "alice", "Secret123!", code, "203.0.113.1")
		require.NoError(t, err)
		require.NotEmpty(t, login.Token)
	})

	t.Run("disable MFA drops the code requirement", func(t *testing.T) {
		require.NoError(t, auth.DisableMFA(ctx, res.User.ID))

		_, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
		require.NoError(t, err)
	})

	t.Run("toggling a missing user", func(t *testing.T) {
		require.ErrorIs(t, auth.EnableMFA(ctx, 9999), ErrNotFound)
		require.ErrorIs(t, auth.DisableMFA(ctx, 9999), ErrNotFound)
	})
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	_, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	// Five failures within the window locks the account.
	for range 5 {
		_, err := auth.Login(ctx, "alice", "WrongPass1", "", "203.0.113.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	t.Run("sixth attempt is blocked even with correct credentials", func(t *testing.T) {
		_, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
		require.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("lockout does not reveal whether the account exists", func(t *testing.T) {
		for range 5 {
			_, err := auth.Login(ctx, "ghost", "WrongPass1", "", "203.0.113.1")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
		_, err := auth.Login(ctx, "ghost", "WrongPass1", "", "203.0.113.1")
		require.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("login succeeds once the window has elapsed", func(t *testing.T) {
		// Age out the failures instead of waiting 15 minutes.
		deleted, err := st.LoginAttempts().DeleteAttemptsBefore(ctx, time.Now().UTC().Add(time.Second))
		require.NoError(t, err)
		require.Positive(t, deleted)

		res, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
	})
}

func TestLockoutWindowIsTrailing(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	_, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	// Backdate 5 failures to just outside the window; they must not count.
	old := time.Now().UTC().Add(-16 * time.Minute)
	for range 5 {
		require.NoError(t, st.LoginAttempts().RecordAttempt(ctx, domain.LoginAttempt{
			ID:          idx.New().String(),
			Username:    "alice",
			IPAddress:   "203.0.113.1",
			Success:     false,
			AttemptTime: old,
		}))
	}

	res, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	auth, st := newTestAuth(t)

	reg, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	login, err := auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
	require.NoError(t, err)

	t.Run("fresh token validates", func(t *testing.T) {
		user, err := auth.ValidateSession(ctx, login.Token)
		require.NoError(t, err)
		require.Equal(t, reg.User.ID, user.ID)
	})

	t.Run("garbage and empty tokens fail", func(t *testing.T) {
		_, err := auth.ValidateSession(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidSession)
		_, err = auth.ValidateSession(ctx, "")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired session fails validation", func(t *testing.T) {
		expired := domain.Session{
			ID:        idx.New().String(),
			UserID:    reg.User.ID,
			Token:     "expired-token",
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
			CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
		}
		require.NoError(t, st.Sessions().CreateSession(ctx, expired))

		_, err := auth.ValidateSession(ctx, "expired-token")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("logout invalidates immediately and is idempotent", func(t *testing.T) {
		require.NoError(t, auth.Logout(ctx, login.Token))

		_, err := auth.ValidateSession(ctx, login.Token)
		require.ErrorIs(t, err, ErrInvalidSession)

		require.NoError(t, auth.Logout(ctx, login.Token))
		require.NoError(t, auth.Logout(ctx, ""))
	})
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	reg, err := auth.Register(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, auth.EnableMFA(ctx, reg.User.ID))

	_, err = auth.Login(ctx, "alice", "Secret123!", "", "203.0.113.1")
	require.ErrorIs(t, err, ErrInvalidTOTPCode)

	code, err := auth.TOTP.CurrentCode(reg.Secret)
	require.NoError(t, err)

	login, err := auth.Login(ctx, "alice", "Secret123!", code, "203.0.113.1")
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)

	user, err := auth.ValidateSession(ctx, login.Token)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, user.ID)

	require.NoError(t, auth.Logout(ctx, login.Token))

	_, err = auth.ValidateSession(ctx, login.Token)
	require.ErrorIs(t, err, ErrInvalidSession)
}
