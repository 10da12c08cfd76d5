// Package store provides bounded per-topic retention of recent messages.
//
// Each topic gets a fixed-capacity ring buffer (default 100 messages); once
// full, appending evicts exactly the oldest entry. Payloads above the size
// cap (default 1 MiB) are truncated and flagged, never rejected. The store
// is owned by the ingestion loop and is not safe for concurrent use.
package store
