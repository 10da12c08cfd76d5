// Package retry provides exponential backoff retry logic and the delay
// schedule used by the connection supervisor's reconnect cycle.
//
// Two usage styles are supported. Do runs a closure with a full retry loop.
// The supervisor instead drives its own state machine and only consumes the
// schedule: Config.DelayForAttempt for the deterministic delay, Jitter to
// spread simultaneous reconnects, and Sleep for a cancellable wait.
package retry
