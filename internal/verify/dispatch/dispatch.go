// Package dispatch delivers one-time codes to users over out-of-band
// channels. The service layer only sees the Dispatcher interface; concrete
// implementations cover a real SMS gateway and a logging stub for
// development and tests.
package dispatch

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable is returned when the downstream provider rejected or
// failed the send. The session keeps its retry affordance in that case.
var ErrGatewayUnavailable = errors.New("dispatch: gateway unavailable")

// Message is one outbound code delivery.
type Message struct {
	// Destination is a normalized phone number in international format.
	Destination string

	// Body is the full message text, code included.
	Body string
}

// Result holds the provider's receipt for a delivered message.
type Result struct {
	MessageID string
	Status    string
}

// Dispatcher sends a code delivery message over some channel.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (Result, error)
}
