// Package ingest runs the single-owner update loop at the center of the
// pipeline. Decoded transport events arrive over a bounded channel; user
// commands and snapshot queries serialize through the same goroutine. The
// topic index, message store, statistics engine, metric tracker, and schema
// tracker are mutated only here, so none of them need locks.
//
// Backpressure is explicit: when the inbound channel saturates, the oldest
// unconsumed message is dropped and counted rather than growing memory or
// blocking the network side indefinitely.
package ingest
