// Package topics maintains the hierarchical index of discovered topics.
//
// The index is an arena of nodes addressed by integer id with a per-node
// name-to-id child map; a synthetic root anchors all paths. Nodes are
// created lazily on first sighting and never removed during a session.
// Concatenating segments from the root to any node reconstructs the original
// topic string exactly.
//
// Wildcard filters use MQTT semantics: '+' matches exactly one segment and
// '#' matches zero or more trailing segments in final position only.
// Starred and expanded flags are plain per-node booleans set by external
// commands; matching logic never interprets them.
package topics
