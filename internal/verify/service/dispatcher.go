package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nzassa/verify/internal/verify/dispatch"
	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/pkg/cryptox"
	"github.com/nzassa/verify/pkg/idx"
)

const dispatchFailedMessage = "Could not send the code. Please try again."

// DispatchService drives code delivery: the SENDING transition, code
// generation and hashing for the SMS channel, the gateway call, and the
// SENT / DISPATCH_ERROR outcome. Resend is the same operation; the session
// state machine applies the cooldown.
type DispatchService struct {
	Store      store.Store
	Dispatcher dispatch.Dispatcher
	Logger     *slog.Logger

	// Cooldown opens after each successful dispatch.
	Cooldown time.Duration

	// CodeTTL bounds how long an issued SMS code can match.
	CodeTTL time.Duration

	// SendTimeout bounds the gateway round trip. Zero means 10s.
	SendTimeout time.Duration

	// MessageTemplate formats the SMS body; one %s verb takes the code.
	MessageTemplate string
}

// RequestCode dispatches a code for the session. For SMS a fresh 6-digit
// code is generated, hashed and handed to the gateway; for authenticator
// nothing leaves the service and the session simply unlocks submission.
// The call returns once the outcome is known, so a nil error always means
// the code is on its way.
func (s *DispatchService) RequestCode(ctx context.Context, sessionID, userID string) (domain.VerificationSession, error) {
	var session domain.VerificationSession

	// Claim the dispatch first so concurrent requests for the same session
	// collide on the SENDING state instead of double-sending.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		session, err = loadSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		if err := session.BeginDispatch(time.Now().UTC()); err != nil {
			return err
		}
		return tx.Sessions().UpdateSession(ctx, session)
	})
	if err != nil {
		return session, err
	}

	if session.Channel == domain.ChannelAuthenticator {
		// Nothing to deliver; the code lives in the user's app.
		return s.finishDispatch(ctx, session, nil)
	}

	sendErr := s.sendSMSCode(ctx, &session)
	return s.finishDispatch(ctx, session, sendErr)
}

// ResendCode is RequestCode under its API alias. The session state machine
// enforces the cooldown between sends.
func (s *DispatchService) ResendCode(ctx context.Context, sessionID, userID string) (domain.VerificationSession, error) {
	return s.RequestCode(ctx, sessionID, userID)
}

// sendSMSCode mints a code, stores its hash and hands the plaintext to the
// gateway. Prior codes are invalidated first so a resend always narrows the
// match set to the newest code.
func (s *DispatchService) sendSMSCode(ctx context.Context, session *domain.VerificationSession) error {
	code, err := cryptox.GenerateNumericCode(domain.CodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := cryptox.HashCode(code)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Codes().InvalidateSessionCodes(ctx, session.ID); err != nil {
			return err
		}
		return tx.Codes().CreateCode(ctx, domain.IssuedCode{
			ID:        idx.New().String(),
			SessionID: session.ID,
			CodeHash:  hash,
			ExpiresAt: now.Add(s.CodeTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store issued code: %w", err)
	}

	timeout := s.SendTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := s.Dispatcher.Send(sendCtx, dispatch.Message{
		Destination: session.Destination,
		Body:        fmt.Sprintf(s.MessageTemplate, code),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	s.Logger.Info("code dispatched",
		slog.String("session_id", session.ID),
		slog.String("message_id", res.MessageID),
	)
	return nil
}

// finishDispatch records the outcome on the session and persists it.
func (s *DispatchService) finishDispatch(ctx context.Context, session domain.VerificationSession, sendErr error) (domain.VerificationSession, error) {
	now := time.Now().UTC()

	if sendErr != nil {
		s.Logger.Warn("dispatch failed",
			slog.String("session_id", session.ID),
			slog.String("error", sendErr.Error()),
		)
		if err := session.MarkDispatchFailed(dispatchFailedMessage, now); err != nil {
			return session, err
		}
		if err := s.Store.Sessions().UpdateSession(ctx, session); err != nil {
			return session, fmt.Errorf("failed to persist dispatch failure: %w", err)
		}
		if errors.Is(sendErr, ErrTimeout) || errors.Is(sendErr, ErrDispatchFailed) {
			return session, sendErr
		}
		return session, fmt.Errorf("%w: %v", ErrDispatchFailed, sendErr)
	}

	if err := session.MarkDispatched(now, s.Cooldown); err != nil {
		return session, err
	}
	if err := s.Store.Sessions().UpdateSession(ctx, session); err != nil {
		return session, fmt.Errorf("failed to persist dispatch: %w", err)
	}
	return session, nil
}
