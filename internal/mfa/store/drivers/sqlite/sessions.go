package sqlite

import (
	"context"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Token, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByToken(ctx context.Context, token string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions WHERE token = ?`, token,
	).Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetUserBySessionToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.credential_hash, u.totp_secret, u.mfa_enabled, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, now.UTC(),
	)
	return scanUser(row)
}

func (r *sessionsRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
