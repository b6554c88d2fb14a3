package sqlite

import (
	"context"
	"time"

	"github.com/flindersec/mfad/internal/mfa/domain"
)

type loginAttemptsRepo struct {
	db dbtx
}

func (r *loginAttemptsRepo) RecordAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, username, ip_address, success, attempt_time)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.IPAddress, a.Success, a.AttemptTime.UTC(),
	)
	return mapConstraint(err)
}

func (r *loginAttemptsRepo) CountRecentFailures(ctx context.Context, username string, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = ? AND success = 0 AND attempt_time >= ?`,
		username, cutoff.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *loginAttemptsRepo) ListAttemptsByUsername(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, ip_address, success, attempt_time
		FROM login_attempts
		WHERE username = ?
		ORDER BY attempt_time DESC, id DESC
		LIMIT ?`,
		username, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.LoginAttempt
	for rows.Next() {
		var a domain.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.IPAddress, &a.Success, &a.AttemptTime); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *loginAttemptsRepo) DeleteUserAttempts(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE username = ?`, username)
	return err
}

func (r *loginAttemptsRepo) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE attempt_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
