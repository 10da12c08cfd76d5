// Package tracker maintains bounded numeric histories for user-tracked
// message fields. A tracked metric pairs a topic wildcard pattern with a
// dotted field path; every ingested message whose topic matches has the
// field extracted, coerced to a number, and appended to the history.
// Missing or non-numeric fields are skipped, never errors.
package tracker
