// Package persist defines the small cross-session user data blob: starred
// topics and devices, bookmarks, the last selected topic, and tracked-metric
// definitions with a bounded history tail. The engine treats it as plain
// data; file format is JSON and the storage location is the caller's call.
package persist
