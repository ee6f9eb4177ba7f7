package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/nzassa/verify/internal/verify/domain"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/pkg/cryptox"
	"github.com/pquerna/otp/totp"
)

// Verifier checks a submitted code against the session's channel. Returning
// false with a nil error is a plain rejection; an error means the check
// itself could not run.
type Verifier interface {
	Verify(ctx context.Context, session domain.VerificationSession, code string) (bool, error)
}

// DemoVerifier accepts a single fixed literal and rejects everything else,
// after a simulated round trip so clients exercise their pending states.
// Used in demo deployments where no real channel exists.
type DemoVerifier struct {
	// Literal is the accepted code. Empty means "123456".
	Literal string

	// MinLatency and MaxLatency bound the simulated round trip. Both zero
	// disables the delay entirely, which is what the unit tests want.
	MinLatency time.Duration
	MaxLatency time.Duration
}

func (v *DemoVerifier) Verify(ctx context.Context, _ domain.VerificationSession, code string) (bool, error) {
	if err := v.sleep(ctx); err != nil {
		return false, err
	}

	literal := v.Literal
	if literal == "" {
		literal = "123456"
	}
	return code == literal, nil
}

func (v *DemoVerifier) sleep(ctx context.Context) error {
	if v.MaxLatency <= 0 {
		return nil
	}
	d := v.MinLatency
	if v.MaxLatency > v.MinLatency {
		d += rand.N(v.MaxLatency - v.MinLatency)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TOTPVerifier validates authenticator codes against the secret provisioned
// at channel selection.
type TOTPVerifier struct{}

func (TOTPVerifier) Verify(_ context.Context, session domain.VerificationSession, code string) (bool, error) {
	if session.TOTPSecret == "" {
		return false, errors.New("session has no provisioned secret")
	}
	return totp.Validate(code, session.TOTPSecret), nil
}

// StoredCodeVerifier compares a submission against the argon2id hashes of
// the codes issued for the session. Expired codes never match; more than one
// live code only exists briefly around a resend, and any match accepts.
type StoredCodeVerifier struct {
	Store store.Store
}

func (v *StoredCodeVerifier) Verify(ctx context.Context, session domain.VerificationSession, code string) (bool, error) {
	codes, err := v.Store.Codes().GetActiveCodesBySession(ctx, session.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, c := range codes {
		if err := cryptox.VerifyCodeHash(code, c.CodeHash); err == nil {
			return true, nil
		}
	}
	return false, nil
}
