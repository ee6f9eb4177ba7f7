package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, channel, destination, totp_secret,
	dispatch_state, verify_state, code, attempts, resend_cooldown_until,
	status_message, created_at, updated_at, expires_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.VerificationSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO verification_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Channel), s.Destination, s.TOTPSecret,
		string(s.DispatchState), string(s.VerifyState), s.Code, s.Attempts,
		mapTimeNull(s.ResendCooldownUntil), s.StatusMessage,
		s.CreatedAt, s.UpdatedAt, s.ExpiresAt,
	)
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.VerificationSession, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM verification_sessions
		WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) UpdateSession(ctx context.Context, s domain.VerificationSession) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE verification_sessions
		SET channel = ?, destination = ?, totp_secret = ?,
			dispatch_state = ?, verify_state = ?, code = ?, attempts = ?,
			resend_cooldown_until = ?, status_message = ?, updated_at = ?
		WHERE id = ?`,
		string(s.Channel), s.Destination, s.TOTPSecret,
		string(s.DispatchState), string(s.VerifyState), s.Code, s.Attempts,
		mapTimeNull(s.ResendCooldownUntil), s.StatusMessage, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM verification_sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM verification_sessions
		WHERE expires_at < ?`, time.Now().UTC())
	return err
}

func scanSession(row *sql.Row) (domain.VerificationSession, error) {
	var (
		s             domain.VerificationSession
		channel       string
		dispatchState string
		verifyState   string
		cooldownUntil sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.UserID, &channel, &s.Destination, &s.TOTPSecret,
		&dispatchState, &verifyState, &s.Code, &s.Attempts, &cooldownUntil,
		&s.StatusMessage, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return domain.VerificationSession{}, mapNotFound(err)
	}

	s.Channel = domain.Channel(channel)
	s.DispatchState = domain.DispatchState(dispatchState)
	s.VerifyState = domain.VerifyState(verifyState)
	s.ResendCooldownUntil = mapNullTime(cooldownUntil)
	return s, nil
}
