package verifysdk

import "time"

// ErrorResponse mirrors the service's error shape for documentation purposes.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine-readable error code
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`

	// RetryAfter carries the remaining cooldown in seconds, when applicable
	RetryAfter int `json:"retry_after,omitempty"`
}

// SessionResponse is the snapshot of a verification session returned by most
// endpoints. The entered code itself is never echoed back.
type SessionResponse struct {
	// ID is the session's ULID
	ID string `json:"id"`

	// Channel is "", "authenticator" or "sms"
	Channel string `json:"channel"`

	// Destination is the normalized phone number for the SMS channel
	Destination string `json:"destination,omitempty"`

	// DispatchState is one of idle, sending, sent, dispatch_error
	DispatchState string `json:"dispatch_state"`

	// VerifyState is one of idle, verifying, verified, verify_error
	VerifyState string `json:"verify_state"`

	// Verified is true once the session reached its terminal state
	Verified bool `json:"verified"`

	// Attempts is the number of failed verifications so far
	Attempts int `json:"attempts"`

	// AttemptsRemaining is how many failures are left before lock-out
	AttemptsRemaining int `json:"attempts_remaining"`

	// ResendCooldownUntil is when the next resend is allowed, if a code was sent
	ResendCooldownUntil *time.Time `json:"resend_cooldown_until,omitempty"`

	// StatusMessage is the last human-readable feedback, if any
	StatusMessage string `json:"status_message,omitempty"`

	// ExpiresAt is when the session becomes unusable
	ExpiresAt time.Time `json:"expires_at"`
}

// SelectChannelRequest picks the delivery channel for a session.
type SelectChannelRequest struct {
	// Channel is "authenticator" or "sms"
	Channel string `json:"channel"`

	// Destination is the phone number, required for the SMS channel
	Destination string `json:"destination,omitempty"`
}

// ProvisioningResponse is returned once, when the authenticator channel is
// selected, so the client can render a QR code.
type ProvisioningResponse struct {
	// Secret is the base32 TOTP secret
	Secret string `json:"secret"`

	// OtpauthURL is the otpauth:// URL for QR rendering
	OtpauthURL string `json:"otpauth_url"`

	// Issuer is the name shown in the authenticator app
	Issuer string `json:"issuer"`

	// Account is the account label shown in the authenticator app
	Account string `json:"account"`
}

// SelectChannelResponse carries the updated session and, for the
// authenticator channel, the one-time provisioning payload.
type SelectChannelResponse struct {
	Session      SessionResponse       `json:"session"`
	Provisioning *ProvisioningResponse `json:"provisioning,omitempty"`
}

// SubmitCodeRequest carries the user's candidate code.
type SubmitCodeRequest struct {
	// Code is the entered candidate, up to 6 digits
	Code string `json:"code"`
}

// HealthResponse is returned by the livez and readyz endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}
