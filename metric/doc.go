// Package metric holds the prometheus collectors for the ingestion pipeline
// under the mqtop namespace, plus an optional scrape endpoint. Record
// helpers are nil-safe; a component handed a nil *Metrics just runs dark.
package metric
