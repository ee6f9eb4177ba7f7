package sqlite

import (
	"context"
	"time"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
)

type codesRepo struct {
	q querier
}

func (r *codesRepo) CreateCode(ctx context.Context, c domain.IssuedCode) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO issued_codes (id, session_id, code_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.CodeHash, c.ExpiresAt, c.CreatedAt,
	)
	return err
}

func (r *codesRepo) GetActiveCodesBySession(ctx context.Context, sessionID string) ([]domain.IssuedCode, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, session_id, code_hash, expires_at, created_at
		FROM issued_codes
		WHERE session_id = ? AND expires_at > ?
		ORDER BY created_at DESC`, sessionID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.IssuedCode
	for rows.Next() {
		var c domain.IssuedCode
		if err := rows.Scan(&c.ID, &c.SessionID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, store.ErrNotFound
	}
	return codes, nil
}

func (r *codesRepo) InvalidateSessionCodes(ctx context.Context, sessionID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM issued_codes WHERE session_id = ?`, sessionID)
	return err
}

func (r *codesRepo) DeleteExpiredCodes(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM issued_codes
		WHERE expires_at < ?`, time.Now().UTC())
	return err
}
