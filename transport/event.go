package transport

// ConnectionState is the supervisor's externally visible connection phase.
// Transitions happen only inside the supervisor's state machine.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// StateInfo carries a state transition. Attempt and NextAttemptAt are only
// meaningful while Reconnecting.
type StateInfo struct {
	State         ConnectionState `json:"state"`
	Server        string          `json:"server,omitempty"`
	Attempt       int             `json:"attempt,omitempty"`
	NextAttemptAt int64           `json:"next_attempt_at,omitempty"` // unix millis
}

// InboundMessage is one decoded publish from a session adapter. The adapter
// owns wire framing; by the time a message reaches here it is already parsed.
type InboundMessage struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	ReceivedAt int64 // unix millis, stamped by the adapter
}

// EventType discriminates Event.
type EventType int

const (
	EventStateChanged EventType = iota
	EventMessageReceived
	EventError
)

// Event is one entry on the supervisor's outbound stream.
type Event struct {
	Type    EventType
	State   StateInfo      // EventStateChanged
	Message InboundMessage // EventMessageReceived
	Err     error          // EventError
}
