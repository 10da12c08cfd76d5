// Package config loads the YAML configuration: server profiles with an
// active selection, engine tuning, logging, and the metrics endpoint.
// A missing file means defaults; MQTOP_TOKEN overrides the active
// profile's password.
package config
