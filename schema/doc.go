// Package schema detects shape drift in JSON payloads per topic. Each
// observed message is reduced to a field-path to type fingerprint; diffs
// against the topic's previous fingerprint are kept in a bounded change log.
package schema
