package domain

import "fmt"

// Channel is the delivery mechanism for a one-time code.
type Channel string

const (
	// ChannelNone means the user has not picked a channel yet.
	ChannelNone Channel = ""

	// ChannelAuthenticator delivers nothing; the code comes from a TOTP app
	// provisioned at selection time.
	ChannelAuthenticator Channel = "authenticator"

	// ChannelSMS delivers the code to a phone number.
	ChannelSMS Channel = "sms"
)

// ParseChannel validates a wire value against the channel enum.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelAuthenticator, ChannelSMS:
		return Channel(s), nil
	default:
		return ChannelNone, fmt.Errorf("unknown channel %q", s)
	}
}

// RequiresDestination reports whether the channel needs a delivery address.
func (c Channel) RequiresDestination() bool {
	return c == ChannelSMS
}
