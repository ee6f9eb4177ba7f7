package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/pkg/idx"
	"github.com/nzassa/verify/pkg/phonex"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SessionService owns the lifecycle of verification sessions: creation,
// channel selection with authenticator provisioning, snapshots and abandon.
type SessionService struct {
	Store store.Store

	// Issuer is the name shown in authenticator apps.
	Issuer string

	// SessionTTL bounds how long a session may be driven before it expires.
	SessionTTL time.Duration
}

// Start creates a fresh session for the authenticated subject.
func (s *SessionService) Start(ctx context.Context, userID string) (domain.VerificationSession, error) {
	session := domain.NewSession(idx.New().String(), userID, time.Now().UTC(), s.SessionTTL)
	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.VerificationSession{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Get returns the caller's session, expired or not. Expiry is reported
// through the snapshot so clients can render the right message.
func (s *SessionService) Get(ctx context.Context, sessionID, userID string) (domain.VerificationSession, error) {
	return loadSession(ctx, s.Store, sessionID, userID)
}

// SelectChannel records the channel choice. For SMS the destination is
// normalized and stored; for authenticator a TOTP secret is minted and the
// provisioning payload is returned exactly once.
func (s *SessionService) SelectChannel(ctx context.Context, sessionID, userID, channel, destination string) (domain.VerificationSession, *domain.ProvisioningPayload, error) {
	ch, err := domain.ParseChannel(channel)
	if err != nil {
		return domain.VerificationSession{}, nil, domain.ErrNoChannelSelected
	}

	if ch.RequiresDestination() {
		destination, err = phonex.Normalize(destination)
		if err != nil {
			return domain.VerificationSession{}, nil, domain.ErrInvalidDestination
		}
	}

	var (
		session domain.VerificationSession
		payload *domain.ProvisioningPayload
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		session, err = loadSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := session.SelectChannel(ch, destination, now); err != nil {
			return err
		}

		if ch == domain.ChannelAuthenticator {
			key, err := totp.Generate(totp.GenerateOpts{
				Issuer:      s.Issuer,
				AccountName: userID,
				Period:      30,
				Digits:      otp.DigitsSix,
				Algorithm:   otp.AlgorithmSHA1,
			})
			if err != nil {
				return fmt.Errorf("failed to generate TOTP key: %w", err)
			}
			if err := session.AttachProvisioning(key.Secret(), now); err != nil {
				return err
			}
			payload = &domain.ProvisioningPayload{
				Secret:     key.Secret(),
				OtpauthURL: key.URL(),
				Issuer:     s.Issuer,
				Account:    userID,
			}
		}

		return tx.Sessions().UpdateSession(ctx, session)
	})
	if err != nil {
		return domain.VerificationSession{}, nil, err
	}

	return session, payload, nil
}

// Abandon deletes the caller's session and any issued codes with it.
func (s *SessionService) Abandon(ctx context.Context, sessionID, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := loadSession(ctx, tx, sessionID, userID); err != nil {
			return err
		}
		return tx.Sessions().DeleteSession(ctx, sessionID)
	})
}

// loadSession fetches a session and enforces ownership. A session owned by
// another subject reads as not found.
func loadSession(ctx context.Context, st store.Store, sessionID, userID string) (domain.VerificationSession, error) {
	session, err := st.Sessions().GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.VerificationSession{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.VerificationSession{}, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return domain.VerificationSession{}, ErrSessionNotFound
	}
	return session, nil
}
