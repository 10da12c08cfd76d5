package transport

import (
	"context"
	"time"

	"github.com/frahlg/mqtop/errors"
)

// Handler receives decoded callbacks from a live session. OnMessage runs on
// the adapter's receive path; OnDisconnect fires once when an established
// session is lost.
type Handler struct {
	OnMessage    func(InboundMessage)
	OnDisconnect func(error)
}

// Session is one live connection. Subscribe may be called repeatedly; the
// supervisor reissues every pattern after each (re)connect.
type Session interface {
	Subscribe(pattern string) error
	Close(timeout time.Duration) error
}

// Dialer establishes sessions. Implementations translate profile fields into
// their protocol's connect options and classify dial failures so the
// supervisor can tell transient network errors from terminal auth errors.
type Dialer interface {
	Dial(ctx context.Context, profile ServerProfile, h Handler) (Session, error)
}

// NewDialer picks the adapter for a profile's protocol.
func NewDialer(protocol string) (Dialer, error) {
	switch protocol {
	case "", ProtocolMQTT:
		return &MQTTDialer{}, nil
	case ProtocolNATS:
		return &NATSDialer{}, nil
	case ProtocolWebsocket:
		return &WebsocketDialer{}, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "transport", "NewDialer", "select protocol "+protocol)
	}
}
