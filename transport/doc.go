// Package transport owns the connection lifecycle: server profiles, session
// adapters for MQTT, NATS, and websocket feeds, and the supervisor that
// drives reconnect backoff around at most one live session.
//
// The supervisor is a single-goroutine state machine. Commands arrive over a
// channel, session callbacks feed back through channels, and everything the
// rest of the system sees leaves through one event stream. Wire framing is
// the adapters' concern; the supervisor only ever handles decoded events.
//
// Backoff starts at the base delay and doubles per failed attempt up to the
// cap, with jitter. A connection that stays up past the stability threshold
// resets the schedule. Auth and config failures do not retry; they surface
// as terminal errors.
package transport
