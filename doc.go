// Package mqtop is a terminal explorer for MQTT and telemetry streams:
// it connects to a broker, ingests everything it can see, and models the
// live topic space so a frontend can browse, inspect, and track it.
//
// # Architecture
//
// The pipeline is a single-writer design. One transport session feeds one
// update goroutine that owns every model; frontends read through snapshot
// queries and never touch model state directly.
//
//	┌──────────────┐   events    ┌──────────────┐   snapshots   ┌──────────┐
//	│  transport   ├────────────►│    ingest    ├──────────────►│ frontend │
//	│  supervisor  │             │  update loop │◄──────────────┤          │
//	└──────────────┘             └──────┬───────┘   commands    └──────────┘
//	                                    │ owns
//	              ┌────────┬────────┬───┴────┬─────────┬─────────┐
//	              │ topics │ store  │ stats  │ tracker │ schema  │
//	              └────────┴────────┴────────┴─────────┴─────────┘
//
// The inbound channel between transport and loop is bounded. Under
// saturation the oldest unconsumed message is dropped and counted; the
// drop counter is part of the stats snapshot so the frontend can show it.
//
// # Packages
//
// Pipeline:
//   - transport: connection supervisor, reconnect backoff, protocol
//     adapters (MQTT, NATS, WebSocket)
//   - ingest: the update loop; commands, queries, fan-out
//
// Models (owned by the loop, no internal locking):
//   - topics: hierarchical topic index, wildcard matching, search
//   - store: per-topic ring buffers of recent messages
//   - stats: rates, payload latency, jitter, device health
//   - tracker: user-defined numeric metrics with history
//   - schema: payload shape fingerprints and change detection
//
// Infrastructure:
//   - config: YAML server profiles and engine tuning
//   - persist: user data (stars, bookmarks, tracked metrics)
//   - metric: Prometheus collectors and scrape endpoint
//   - errors: structured errors with transient/invalid/fatal classes
//   - pkg/retry: backoff policies shared with the supervisor
//   - pkg/timestamp: millisecond Unix time helpers
//
// # Binary
//
// cmd/mqtop wires it all together:
//
//	# Run against the default local broker
//	mqtop
//
//	# Run a named profile from a config file
//	mqtop --config ~/.config/mqtop/mqtop.yaml --server production
package mqtop
