package domain

import "time"

// IssuedCode is the server-side record of a code sent over the SMS channel.
// Only the argon2id hash is stored; the plaintext exists exactly once, in
// the message handed to the gateway. Resends invalidate all prior codes for
// the session.
type IssuedCode struct {
	ID        string // ULID
	SessionID string
	CodeHash  string // PHC-format argon2id
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Usable reports whether the code can still match a submission.
func (c *IssuedCode) Usable(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// ProvisioningPayload is returned once, at authenticator channel selection,
// so the client can render the QR code. The secret is also kept on the
// session for verifying submitted TOTP codes.
type ProvisioningPayload struct {
	Secret     string // base32 TOTP secret
	OtpauthURL string // otpauth:// URL for QR rendering
	Issuer     string
	Account    string
}
