package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/store"
	"github.com/flindersec/mfad/pkg/totpx"
)

// UserService covers the admin-facing user operations: listing, enrollment
// material, secret rotation, and deletion.
type UserService struct {
	Store  store.Store
	TOTP   *totpx.Engine
	Logger *slog.Logger
}

// List returns every user, oldest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ProvisioningURI rebuilds the enrollment URI and QR code for a user's
// current secret, for re-provisioning a device.
func (s *UserService) ProvisioningURI(ctx context.Context, userID int64) (domain.RegisterResult, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return domain.RegisterResult{}, err
	}

	uri := s.TOTP.ProvisioningURI(user.Username, user.TOTPSecret)
	qr, err := s.TOTP.QRCodePNG(user.Username, user.TOTPSecret, 256)
	if err != nil {
		s.logger().WarnContext(ctx, "failed to render QR code",
			"user_id", userID, "error", err)
		qr = nil
	}

	return domain.RegisterResult{
		User:            user,
		Secret:          user.TOTPSecret,
		ProvisioningURI: uri,
		QRCodePNG:       qr,
	}, nil
}

// RotateSecret replaces the user's TOTP secret. Any previously enrolled
// device stops working immediately.
func (s *UserService) RotateSecret(ctx context.Context, userID int64) (domain.RegisterResult, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return domain.RegisterResult{}, err
	}

	secret, err := s.TOTP.GenerateSecret()
	if err != nil {
		return domain.RegisterResult{}, err
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, userID, secret); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RegisterResult{}, ErrNotFound
		}
		return domain.RegisterResult{}, fmt.Errorf("failed to rotate secret: %w", err)
	}
	user.TOTPSecret = secret

	uri := s.TOTP.ProvisioningURI(user.Username, secret)
	qr, err := s.TOTP.QRCodePNG(user.Username, secret, 256)
	if err != nil {
		s.logger().WarnContext(ctx, "failed to render QR code",
			"user_id", userID, "error", err)
		qr = nil
	}

	s.logger().InfoContext(ctx, "rotated TOTP secret", "user_id", userID)

	return domain.RegisterResult{
		User:            user,
		Secret:          secret,
		ProvisioningURI: uri,
		QRCodePNG:       qr,
	}, nil
}

// Delete removes a user and everything tied to them. Sessions are purged by
// user id even when the user row is already gone, so orphaned sessions from
// a partial earlier delete can still be cleaned up; attempt history is keyed
// by username and is skipped when the user is missing.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	var notFound bool

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to look up user: %w", err)
			}
			notFound = true
		}

		if err := tx.Sessions().DeleteUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}

		if notFound {
			return nil
		}

		if err := tx.LoginAttempts().DeleteUserAttempts(ctx, user.Username); err != nil {
			return fmt.Errorf("failed to delete login attempts: %w", err)
		}

		if err := tx.Users().DeleteUser(ctx, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if notFound {
		return ErrNotFound
	}

	s.logger().InfoContext(ctx, "deleted user", "user_id", userID)
	return nil
}

func (s *UserService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
