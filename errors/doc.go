// Package errors defines the error taxonomy for the mqtop ingestion core.
//
// Three classes drive three policies:
//
//   - Transient: network-level connection faults. These feed the supervisor's
//     reconnect/backoff cycle and are never surfaced as terminal.
//   - Invalid: per-message faults (malformed payloads, oversized payloads,
//     missing or non-numeric fields). These are isolated: the message is
//     dropped or flagged and ingestion continues with the next event.
//   - Fatal: authentication and configuration faults. These stop the retry
//     cycle and must surface to the operator.
//
// Use the Wrap* helpers to attach component/operation context while
// preserving errors.Is/As chains.
package errors
