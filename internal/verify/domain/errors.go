package domain

import (
	"errors"
	"fmt"
	"time"
)

// Transition errors. Every state machine method returns one of these when a
// request arrives in a state that does not permit it; callers map them onto
// the API error taxonomy.
var (
	ErrChannelAlreadySet  = errors.New("channel already selected for this session")
	ErrNoChannelSelected  = errors.New("no channel selected")
	ErrInvalidDestination = errors.New("destination missing or malformed")
	ErrDispatchInFlight   = errors.New("a dispatch is already in flight")
	ErrNotSending         = errors.New("no dispatch in flight")
	ErrNothingDispatched  = errors.New("no code has been dispatched yet")
	ErrIncompleteCode     = errors.New("code is incomplete")
	ErrMalformedCode      = errors.New("code contains non-digit characters")
	ErrNotVerifying       = errors.New("no verification in flight")
	ErrSessionConsumed    = errors.New("session already verified")
	ErrSessionExpired     = errors.New("session expired")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
	ErrCooldownActive     = errors.New("resend cooldown active")
)

// CooldownError reports how long the caller has to wait before the next
// resend. It matches ErrCooldownActive under errors.Is.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend cooldown active for another %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }
