// Package stats computes streaming statistics over the message flow: rolling
// window rate and throughput, payload latency from claimed timestamps,
// inter-arrival jitter, and pull-based device health classification.
//
// The Engine is single-owner state driven by the ingestion loop. Snapshots
// are value copies safe to hand to readers. The clock is injectable so rate
// decay and health transitions are deterministic under test.
package stats
