package store

import (
	"context"
	"errors"

	"github.com/nzassa/verify/internal/verify/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and make it obvious
// when a call runs inside a transaction versus on the root connection.
type Store interface {
	Sessions() Sessions
	Codes() Codes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
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

type Sessions interface {
	// CreateSession inserts a freshly started session (id is a ULID minted by the app).
	CreateSession(ctx context.Context, s domain.VerificationSession) error

	// GetSession returns a session by id, expired or not. Liveness is the
	// caller's decision so expired sessions can still be reported as such.
	GetSession(ctx context.Context, id string) (domain.VerificationSession, error)

	// UpdateSession persists the full mutable state of a session. The state
	// machine mutates several fields per transition, so a whole-row write is
	// simpler and safer than per-field updates.
	UpdateSession(ctx context.Context, s domain.VerificationSession) error

	// DeleteSession removes a session; issued codes cascade per schema.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type Codes interface {
	// CreateCode stores the hash of a freshly dispatched code.
	CreateCode(ctx context.Context, c domain.IssuedCode) error

	// GetActiveCodesBySession returns the not-yet-expired codes for a session,
	// newest first. Usually zero or one; more than one only during a resend race.
	GetActiveCodesBySession(ctx context.Context, sessionID string) ([]domain.IssuedCode, error)

	// InvalidateSessionCodes removes every code for a session, used on resend
	// so the previous code can no longer match.
	InvalidateSessionCodes(ctx context.Context, sessionID string) error

	// DeleteExpiredCodes is housekeeping.
	DeleteExpiredCodes(ctx context.Context) error
}
