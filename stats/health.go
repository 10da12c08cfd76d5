package stats

import (
	"strings"
	"time"
)

// Health classification thresholds, overridable per engine.
const (
	DefaultHealthyThreshold = 60 * time.Second
	DefaultStaleThreshold   = 300 * time.Second
)

// HealthStatus classifies a device by the age of its last message.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Warning
	Stale
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Warning:
		return "warning"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// DeviceInfo is the snapshot view of one tracked device. Status is
// recomputed from last-seen age on every snapshot, never stored.
type DeviceInfo struct {
	ID           string       `json:"id"`
	Type         string       `json:"type,omitempty"`
	MessageCount uint64       `json:"message_count"`
	LastSeen     int64        `json:"last_seen"`
	LastSize     int          `json:"last_size"`
	Topics       []string     `json:"topics"`
	Status       HealthStatus `json:"status"`
}

// HealthSummary counts devices per status at snapshot time.
type HealthSummary struct {
	Healthy int `json:"healthy"`
	Warning int `json:"warning"`
	Stale   int `json:"stale"`
}

type deviceRecord struct {
	id           string
	deviceType   string
	messageCount uint64
	lastSeen     int64
	lastSize     int
	topics       []string
}

func (d *deviceRecord) observe(topic string, size int, receivedAt int64) {
	d.messageCount++
	d.lastSeen = receivedAt
	d.lastSize = size
	for _, t := range d.topics {
		if t == topic {
			return
		}
	}
	d.topics = append(d.topics, topic)
}

// classify maps last-seen age onto a status against the two thresholds.
func classify(age, healthy, stale time.Duration) HealthStatus {
	switch {
	case age < healthy:
		return Healthy
	case age < stale:
		return Warning
	default:
		return Stale
	}
}

// DeviceID extracts a device identifier from known topic shapes:
// telemetry/{id}/..., devices/{id}/..., sites/{site}/devices/{id}/...
// Topics outside these shapes carry no device identity.
func DeviceID(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	switch {
	case len(parts) >= 2 && (parts[0] == "telemetry" || parts[0] == "devices"):
		return parts[1], parts[1] != ""
	case len(parts) >= 4 && parts[0] == "sites" && parts[2] == "devices":
		return parts[3], parts[3] != ""
	}
	return "", false
}

// DeviceType extracts the device type from telemetry/{id}/{type}/... topics.
func DeviceType(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 && parts[0] == "telemetry" {
		return parts[2]
	}
	return ""
}
