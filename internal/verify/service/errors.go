package service

import "errors"

var (
	// ErrSessionNotFound covers both a missing session and a session owned by
	// another user, so existence is never leaked across subjects.
	ErrSessionNotFound = errors.New("verification session not found")

	// ErrTimeout is returned when an outbound call (gateway send or code
	// verification) exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoVerifier means the session's channel has no verifier configured,
	// which indicates a wiring bug rather than a user error.
	ErrNoVerifier = errors.New("no verifier for channel")

	// ErrCodeRejected is returned when the verifier turned the code down.
	// The returned session snapshot carries the attempt count and message.
	ErrCodeRejected = errors.New("code rejected")

	// ErrDispatchFailed is returned when the delivery could not be completed.
	// The session keeps its retry affordance.
	ErrDispatchFailed = errors.New("dispatch failed")
)
