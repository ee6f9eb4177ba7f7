package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
)

const (
	rejectedMessage    = "Invalid code. Please try again."
	tooManyMessage     = "Too many failed attempts. Start a new verification."
	verifyAbortMessage = "Verification could not complete. Please try again."
)

// VerifyService drives code submission: the VERIFYING transition, the
// verifier call with its timeout, and the VERIFIED / VERIFY_ERROR outcome.
type VerifyService struct {
	Store  store.Store
	Logger *slog.Logger

	// Verifiers maps a channel to the capability that checks its codes.
	// Demo deployments map every channel to the DemoVerifier.
	Verifiers map[domain.Channel]Verifier

	// VerifyTimeout bounds the verifier call. Zero means 10s.
	VerifyTimeout time.Duration
}

// SubmitCode records the candidate on the session and runs the channel's
// verifier against it. An incomplete candidate is rejected before any
// verifier call. On success the session is verified and locked; on rejection
// an attempt is spent. Verifier failures abort without spending an attempt.
func (s *VerifyService) SubmitCode(ctx context.Context, sessionID, userID, code string) (domain.VerificationSession, error) {
	var session domain.VerificationSession

	// Claim the verification so concurrent submissions collide on the
	// VERIFYING state, and persist the candidate either way.
	var incomplete error
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		session, err = loadSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := session.SetCode(code, now); err != nil {
			return err
		}
		if err := session.BeginVerify(now); err != nil {
			// An incomplete candidate parks the session in VERIFY_ERROR;
			// that state must be committed before surfacing the error.
			if errors.Is(err, domain.ErrIncompleteCode) {
				incomplete = err
				return tx.Sessions().UpdateSession(ctx, session)
			}
			return err
		}
		return tx.Sessions().UpdateSession(ctx, session)
	})
	if err != nil {
		return session, err
	}
	if incomplete != nil {
		return session, incomplete
	}

	verifier, ok := s.Verifiers[session.Channel]
	if !ok {
		return s.abort(ctx, session, ErrNoVerifier)
	}

	timeout := s.VerifyTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, verr := verifier.Verify(verifyCtx, session, session.Code)
	if verr != nil {
		if errors.Is(verr, context.DeadlineExceeded) {
			verr = fmt.Errorf("%w: %v", ErrTimeout, verr)
		}
		return s.abort(ctx, session, verr)
	}

	now := time.Now().UTC()
	if !ok {
		if err := session.MarkVerifyRejected(rejectedMessage, now); err != nil {
			return session, err
		}
		if session.Burned() {
			session.StatusMessage = tooManyMessage
		}
		if err := s.Store.Sessions().UpdateSession(ctx, session); err != nil {
			return session, fmt.Errorf("failed to persist rejection: %w", err)
		}
		s.Logger.Info("code rejected",
			slog.String("session_id", session.ID),
			slog.Int("attempts", session.Attempts),
		)
		return session, ErrCodeRejected
	}

	if err := session.MarkVerified(now); err != nil {
		return session, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().UpdateSession(ctx, session); err != nil {
			return err
		}
		// The session is consumed; its codes have no further use.
		return tx.Codes().InvalidateSessionCodes(ctx, session.ID)
	})
	if err != nil {
		return session, fmt.Errorf("failed to persist verification: %w", err)
	}

	s.Logger.Info("session verified", slog.String("session_id", session.ID))
	return session, nil
}

// abort releases the VERIFYING claim without spending an attempt.
func (s *VerifyService) abort(ctx context.Context, session domain.VerificationSession, cause error) (domain.VerificationSession, error) {
	s.Logger.Warn("verification aborted",
		slog.String("session_id", session.ID),
		slog.String("error", cause.Error()),
	)

	if err := session.MarkVerifyAborted(verifyAbortMessage, time.Now().UTC()); err != nil {
		return session, err
	}
	if err := s.Store.Sessions().UpdateSession(ctx, session); err != nil {
		return session, fmt.Errorf("failed to persist abort: %w", err)
	}
	return session, cause
}
