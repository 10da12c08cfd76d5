package store

import (
	"encoding/hex"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/frahlg/mqtop/pkg/timestamp"
)

// Message is one received publish. Payload may be truncated to the store's
// payload cap; Size always records the original wire size.
type Message struct {
	Topic      string `json:"topic"`
	Payload    []byte `json:"payload"`
	Size       int    `json:"size"`
	QoS        byte   `json:"qos"`
	Retain     bool   `json:"retain"`
	ReceivedAt int64  `json:"received_at"` // unix millis
	ClaimedAt  int64  `json:"claimed_at,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// claimedFields are checked in order for an embedded device timestamp.
var claimedFields = []string{"timestamp", "ts", "time", "t"}

// NewMessage builds a Message stamped with the receive time and extracts the
// payload's claimed timestamp when one is present and parseable. Absence of
// a claimed timestamp is not an error; ClaimedAt stays 0.
func NewMessage(topic string, payload []byte, qos byte, retain bool, receivedAt int64) Message {
	msg := Message{
		Topic:      topic,
		Payload:    payload,
		Size:       len(payload),
		QoS:        qos,
		Retain:     retain,
		ReceivedAt: receivedAt,
	}

	if gjson.ValidBytes(payload) {
		for _, field := range claimedFields {
			if v := gjson.GetBytes(payload, field); v.Exists() {
				if ms := timestamp.Parse(v.Value()); ms != 0 && timestamp.Validate(ms) == nil {
					msg.ClaimedAt = ms
				}
				break
			}
		}
	}

	return msg
}

// PayloadString returns the payload as text, or ok=false for binary data.
func (m Message) PayloadString() (string, bool) {
	if !utf8.Valid(m.Payload) {
		return "", false
	}
	return string(m.Payload), true
}

// PayloadHex renders the payload as a hex dump string for binary display.
func (m Message) PayloadHex() string {
	return hex.EncodeToString(m.Payload)
}

// IsJSON reports whether the payload parses as JSON.
func (m Message) IsJSON() bool {
	return gjson.ValidBytes(m.Payload)
}

// Latency returns received-minus-claimed in milliseconds, or ok=false when
// no claimed timestamp was present.
func (m Message) Latency() (int64, bool) {
	if m.ClaimedAt == 0 {
		return 0, false
	}
	return m.ReceivedAt - m.ClaimedAt, true
}
