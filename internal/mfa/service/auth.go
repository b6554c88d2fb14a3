package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/store"
	"github.com/flindersec/mfad/pkg/cryptox"
	"github.com/flindersec/mfad/pkg/idx"
	"github.com/flindersec/mfad/pkg/totpx"
)

// Lockout policy defaults: a username is blocked once it accrues this many
// failures inside the trailing window.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

const (
	usernameMinLen = 3
	usernameMaxLen = 50
	credentialMin  = 8
)

// AuthService orchestrates registration, login, and session checks. It is
// the only component that enforces the lockout policy.
type AuthService struct {
	Store    store.Store
	TOTP     *totpx.Engine
	Sessions *SessionService
	Logger   *slog.Logger

	LockoutThreshold int           // zero means DefaultLockoutThreshold
	LockoutWindow    time.Duration // zero means DefaultLockoutWindow
}

func (s *AuthService) lockoutThreshold() int {
	if s.LockoutThreshold <= 0 {
		return DefaultLockoutThreshold
	}
	return s.LockoutThreshold
}

func (s *AuthService) lockoutWindow() time.Duration {
	if s.LockoutWindow <= 0 {
		return DefaultLockoutWindow
	}
	return s.LockoutWindow
}

// Register enrolls a new user with a fresh TOTP secret. MFA starts disabled;
// the operator enables it once the authenticator app is set up. No session
// is created.
func (s *AuthService) Register(ctx context.Context, username, credential string) (domain.RegisterResult, error) {
	if err := validateUsername(username); err != nil {
		return domain.RegisterResult{}, err
	}
	if err := validateCredential(credential); err != nil {
		return domain.RegisterResult{}, err
	}

	// Pre-check for a friendlier error; the unique constraint is the final
	// arbiter under concurrent registration.
	_, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err == nil {
		return domain.RegisterResult{}, ErrDuplicateUsername
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.RegisterResult{}, fmt.Errorf("failed to check username: %w", err)
	}

	secret, err := s.TOTP.GenerateSecret()
	if err != nil {
		return domain.RegisterResult{}, err
	}

	hash, err := cryptox.HashCredential(credential)
	if err != nil {
		return domain.RegisterResult{}, fmt.Errorf("failed to hash credential: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		Username:       username,
		CredentialHash: hash,
		TOTPSecret:     secret,
		MFAEnabled:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := s.Store.Users().CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.RegisterResult{}, ErrDuplicateUsername
		}
		return domain.RegisterResult{}, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id

	uri := s.TOTP.ProvisioningURI(username, secret)
	qr, err := s.TOTP.QRCodePNG(username, secret, 256)
	if err != nil {
		// The secret and URI are enough to enroll; QR rendering is best effort.
		s.logger().WarnContext(ctx, "failed to render enrollment QR code",
			"username", username, "error", err)
		qr = nil
	}

	return domain.RegisterResult{
		User:            user,
		Secret:          secret,
		ProvisioningURI: uri,
		QRCodePNG:       qr,
	}, nil
}

// Login runs the authentication state machine: lockout check first, then
// credential, then TOTP, then session issuance. Every failure path records
// an attempt so the lockout counter advances.
func (s *AuthService) Login(ctx context.Context, username, credential, totpCode, ipAddress string) (domain.LoginResult, error) {
	if username == "" || credential == "" {
		return domain.LoginResult{}, fmt.Errorf("%w: username and credential are required", ErrValidation)
	}

	// Lockout is evaluated before anything else so a blocked caller learns
	// nothing about whether the account exists.
	cutoff := time.Now().UTC().Add(-s.lockoutWindow())
	failures, err := s.Store.LoginAttempts().CountRecentFailures(ctx, username, cutoff)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to check lockout: %w", err)
	}
	if failures >= s.lockoutThreshold() {
		return domain.LoginResult{}, ErrRateLimited
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same failure as a wrong password, so usernames can't be probed.
			s.recordAttempt(ctx, username, ipAddress, false)
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if !cryptox.VerifyCredential(user.CredentialHash, credential) {
		s.recordAttempt(ctx, username, ipAddress, false)
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if !s.TOTP.VerifyCode(user.TOTPSecret, totpCode) {
			s.recordAttempt(ctx, username, ipAddress, false)
			return domain.LoginResult{}, ErrInvalidTOTPCode
		}
	}

	s.recordAttempt(ctx, username, ipAddress, true)

	session, err := s.Sessions.Create(ctx, user.ID)
	if err != nil {
		return domain.LoginResult{}, err
	}

	s.logger().InfoContext(ctx, "user logged in",
		"user_id", user.ID, "username", user.Username, "mfa", user.MFAEnabled)

	return domain.LoginResult{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// ValidateSession resolves a bearer token to its owning user.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (domain.User, error) {
	return s.Sessions.Validate(ctx, token)
}

// Logout invalidates a session. Missing or unknown tokens are a no-op
// success.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Sessions.Invalidate(ctx, token)
}

// EnableMFA turns on the TOTP requirement for a user.
func (s *AuthService) EnableMFA(ctx context.Context, userID int64) error {
	return s.setMFA(ctx, userID, true)
}

// DisableMFA turns off the TOTP requirement. Only the user id is required;
// no re-verification of the TOTP device is performed.
func (s *AuthService) DisableMFA(ctx context.Context, userID int64) error {
	return s.setMFA(ctx, userID, false)
}

func (s *AuthService) setMFA(ctx context.Context, userID int64, enabled bool) error {
	err := s.Store.Users().SetMFAEnabled(ctx, userID, enabled)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update MFA flag: %w", err)
	}
	return nil
}

// recordAttempt appends an audit row. Audit failures are logged but never
// block the authentication flow.
func (s *AuthService) recordAttempt(ctx context.Context, username, ipAddress string, success bool) {
	attempt := domain.LoginAttempt{
		ID:          idx.New().String(),
		Username:    username,
		IPAddress:   ipAddress,
		Success:     success,
		AttemptTime: time.Now().UTC(),
	}
	if err := s.Store.LoginAttempts().RecordAttempt(ctx, attempt); err != nil {
		s.logger().ErrorContext(ctx, "failed to record login attempt",
			"username", username, "success", success, "error", err)
	}
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func validateUsername(username string) error {
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		return fmt.Errorf("%w: username must be between %d and %d characters",
			ErrValidation, usernameMinLen, usernameMaxLen)
	}
	return nil
}

// validateCredential enforces the minimum strength policy: length plus at
// least one upper-case letter, one lower-case letter, and one digit.
func validateCredential(credential string) error {
	if len(credential) < credentialMin {
		return fmt.Errorf("%w: credential must be at least %d characters", ErrValidation, credentialMin)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range credential {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: credential must contain upper-case, lower-case, and numeric characters", ErrValidation)
	}
	return nil
}
