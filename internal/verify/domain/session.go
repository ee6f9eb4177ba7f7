package domain

import "time"

// DispatchState tracks the lifecycle of sending a one-time code out.
type DispatchState string

const (
	DispatchIdle    DispatchState = "idle"
	DispatchSending DispatchState = "sending"
	DispatchSent    DispatchState = "sent"
	DispatchError   DispatchState = "dispatch_error"
)

// VerifyState tracks the lifecycle of checking a candidate code.
type VerifyState string

const (
	VerifyIdle      VerifyState = "idle"
	VerifyVerifying VerifyState = "verifying"
	VerifyVerified  VerifyState = "verified"
	VerifyError     VerifyState = "verify_error"
)

const (
	// CodeLength is the exact number of digits in a one-time code.
	CodeLength = 6

	// MaxAttempts is the number of failed verifications allowed before the
	// session is burned, preventing brute force of the 10^6 code space.
	MaxAttempts = 5
)

// VerificationSession tracks one user's progress through channel selection,
// code dispatch and verification. All state changes go through the named
// transition methods below; the struct fields are exported for persistence
// only and must not be mutated ad hoc.
type VerificationSession struct {
	ID     string // ULID
	UserID string // subject from the access token

	Channel     Channel
	Destination string // normalized phone number; empty for authenticator
	TOTPSecret  string // base32 secret; only set for the authenticator channel

	DispatchState DispatchState
	VerifyState   VerifyState

	// Code is the user's current candidate, always 0..6 digits. Cleared on
	// resend so a stale code can't be submitted against a new one.
	Code string

	// Attempts counts failed verifications; MaxAttempts burns the session.
	Attempts int

	// ResendCooldownUntil gates resends; requests before it are rejected
	// without touching the dispatcher.
	ResendCooldownUntil time.Time

	// StatusMessage is the last human-readable feedback. Cleared when the
	// user edits the code after an error.
	StatusMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a fresh session in the initial state.
func NewSession(id, userID string, now time.Time, ttl time.Duration) VerificationSession {
	return VerificationSession{
		ID:            id,
		UserID:        userID,
		Channel:       ChannelNone,
		DispatchState: DispatchIdle,
		VerifyState:   VerifyIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// Expired reports whether the session's TTL has elapsed.
func (s *VerificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Consumed reports whether the session reached its terminal state. A
// verified session accepts no further edits, dispatches or submissions.
func (s *VerificationSession) Consumed() bool {
	return s.VerifyState == VerifyVerified
}

// Burned reports whether the attempt budget is exhausted.
func (s *VerificationSession) Burned() bool {
	return s.Attempts >= MaxAttempts
}

// SelectChannel records the user's channel choice. The channel is immutable
// for the session's lifetime; destination is required for SMS and must
// already be normalized by the caller.
func (s *VerificationSession) SelectChannel(ch Channel, destination string, now time.Time) error {
	if err := s.usable(now); err != nil {
		return err
	}
	if s.Channel != ChannelNone {
		return ErrChannelAlreadySet
	}
	if ch == ChannelNone {
		return ErrNoChannelSelected
	}
	if ch.RequiresDestination() && destination == "" {
		return ErrInvalidDestination
	}
	if !ch.RequiresDestination() {
		destination = ""
	}

	s.Channel = ch
	s.Destination = destination
	s.UpdatedAt = now
	return nil
}

// AttachProvisioning stores the TOTP secret minted for the authenticator
// channel. Allowed exactly once, right after channel selection.
func (s *VerificationSession) AttachProvisioning(secret string, now time.Time) error {
	if s.Channel != ChannelAuthenticator {
		return ErrNoChannelSelected
	}
	if s.TOTPSecret != "" {
		return ErrChannelAlreadySet
	}

	s.TOTPSecret = secret
	s.UpdatedAt = now
	return nil
}

// BeginDispatch moves the session into SENDING. From SENT this is a resend
// and is additionally gated by the cooldown window. Only one dispatch may be
// in flight at a time.
func (s *VerificationSession) BeginDispatch(now time.Time) error {
	if err := s.usable(now); err != nil {
		return err
	}
	if s.Channel == ChannelNone {
		return ErrNoChannelSelected
	}
	if s.Channel.RequiresDestination() && s.Destination == "" {
		return ErrInvalidDestination
	}

	switch s.DispatchState {
	case DispatchSending:
		return ErrDispatchInFlight
	case DispatchSent:
		if now.Before(s.ResendCooldownUntil) {
			return &CooldownError{Remaining: s.ResendCooldownUntil.Sub(now)}
		}
	case DispatchIdle, DispatchError:
		// first attempt or retry after failure, no cooldown applies
	}

	s.DispatchState = DispatchSending
	s.StatusMessage = ""
	s.UpdatedAt = now
	return nil
}

// MarkDispatched records a successful dispatch and opens the next cooldown
// window. Any previously entered digits are cleared so the user cannot
// submit a stale code against the newly issued one.
func (s *VerificationSession) MarkDispatched(now time.Time, cooldown time.Duration) error {
	if s.DispatchState != DispatchSending {
		return ErrNotSending
	}

	s.DispatchState = DispatchSent
	s.ResendCooldownUntil = now.Add(cooldown)
	s.Code = ""
	if s.VerifyState == VerifyError {
		s.VerifyState = VerifyIdle
	}
	s.StatusMessage = ""
	s.UpdatedAt = now
	return nil
}

// MarkDispatchFailed records a failed dispatch with a retry affordance.
func (s *VerificationSession) MarkDispatchFailed(msg string, now time.Time) error {
	if s.DispatchState != DispatchSending {
		return ErrNotSending
	}

	s.DispatchState = DispatchError
	s.StatusMessage = msg
	s.UpdatedAt = now
	return nil
}

// SetCode stores the user's candidate. The candidate must already be
// digit-filtered at the input boundary; anything else is rejected here as a
// defensive guard, never stored. Editing after a verification error clears
// the error state and message, giving the user a clean slate.
func (s *VerificationSession) SetCode(candidate string, now time.Time) error {
	if err := s.usable(now); err != nil {
		return err
	}
	if len(candidate) > CodeLength || !isDigits(candidate) {
		return ErrMalformedCode
	}

	s.Code = candidate
	if s.VerifyState == VerifyError {
		s.VerifyState = VerifyIdle
		s.StatusMessage = ""
	}
	s.UpdatedAt = now
	return nil
}

// BeginVerify moves the session into VERIFYING. A code may only be submitted
// after at least one successful dispatch, with exactly CodeLength digits
// entered. An incomplete code parks the session in VerifyError without any
// collaborator call.
func (s *VerificationSession) BeginVerify(now time.Time) error {
	if err := s.usable(now); err != nil {
		return err
	}
	if s.Burned() {
		return ErrTooManyAttempts
	}
	if s.DispatchState != DispatchSent {
		return ErrNothingDispatched
	}
	if s.VerifyState == VerifyVerifying {
		return ErrNotVerifying
	}
	if len(s.Code) != CodeLength {
		s.VerifyState = VerifyError
		s.StatusMessage = "Please enter the 6-digit code."
		s.UpdatedAt = now
		return ErrIncompleteCode
	}

	s.VerifyState = VerifyVerifying
	s.StatusMessage = ""
	s.UpdatedAt = now
	return nil
}

// MarkVerified records acceptance. Terminal: the session is consumed.
func (s *VerificationSession) MarkVerified(now time.Time) error {
	if s.VerifyState != VerifyVerifying {
		return ErrNotVerifying
	}

	s.VerifyState = VerifyVerified
	s.StatusMessage = "Verification successful"
	s.UpdatedAt = now
	return nil
}

// MarkVerifyAborted records a verification that could not complete, such as
// a verifier timeout. No attempt is spent; the user may retry immediately.
func (s *VerificationSession) MarkVerifyAborted(msg string, now time.Time) error {
	if s.VerifyState != VerifyVerifying {
		return ErrNotVerifying
	}

	s.VerifyState = VerifyError
	s.StatusMessage = msg
	s.UpdatedAt = now
	return nil
}

// MarkVerifyRejected records a rejection and spends one attempt.
func (s *VerificationSession) MarkVerifyRejected(msg string, now time.Time) error {
	if s.VerifyState != VerifyVerifying {
		return ErrNotVerifying
	}

	s.VerifyState = VerifyError
	s.Attempts++
	s.StatusMessage = msg
	s.UpdatedAt = now
	return nil
}

// usable gates every user-driven transition on the session still being live.
func (s *VerificationSession) usable(now time.Time) error {
	if s.Consumed() {
		return ErrSessionConsumed
	}
	if s.Expired(now) {
		return ErrSessionExpired
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
