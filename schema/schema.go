package schema

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/frahlg/mqtop/pkg/timestamp"
)

// DefaultMaxChanges bounds the retained change log.
const DefaultMaxChanges = 50

// FieldType is a coarse JSON type classification.
type FieldType int

const (
	Null FieldType = iota
	Boolean
	Number
	String
	Array
	Object
)

func (t FieldType) String() string {
	switch t {
	case Null:
		return "null"
	case Boolean:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// ChangeType marks what happened to a field between consecutive messages.
type ChangeType int

const (
	FieldAdded ChangeType = iota
	FieldRemoved
	TypeChanged
)

func (c ChangeType) String() string {
	switch c {
	case FieldAdded:
		return "+"
	case FieldRemoved:
		return "-"
	case TypeChanged:
		return "~"
	default:
		return "?"
	}
}

// Change records one detected schema difference on a topic.
type Change struct {
	Topic     string     `json:"topic"`
	Type      ChangeType `json:"type"`
	FieldPath string     `json:"field_path"`
	OldType   FieldType  `json:"old_type"`
	NewType   FieldType  `json:"new_type"`
	At        int64      `json:"at"`
}

// Tracker fingerprints the JSON shape of each topic's payloads and records
// field additions, removals, and type changes between consecutive messages.
// Owned by the ingestion loop; not safe for concurrent use.
type Tracker struct {
	schemas    map[string]map[string]FieldType
	changes    []Change
	maxChanges int
	now        func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxChanges bounds the change log.
func WithMaxChanges(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxChanges = n
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty schema tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		schemas:    make(map[string]map[string]FieldType),
		maxChanges: DefaultMaxChanges,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe fingerprints one payload and returns any changes against the
// topic's previous shape. The first message on a topic establishes the
// baseline and reports nothing. Non-JSON payloads are ignored.
func (t *Tracker) Observe(topic string, payload []byte) []Change {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	next := fingerprint(payload)

	prev, known := t.schemas[topic]
	t.schemas[topic] = next
	if !known {
		return nil
	}

	detected := t.compare(topic, prev, next)
	for _, c := range detected {
		if len(t.changes) >= t.maxChanges {
			t.changes = t.changes[1:]
		}
		t.changes = append(t.changes, c)
	}
	return detected
}

func (t *Tracker) compare(topic string, prev, next map[string]FieldType) []Change {
	var changes []Change
	at := timestamp.ToUnixMs(t.now())

	for field, newType := range next {
		oldType, existed := prev[field]
		switch {
		case !existed:
			changes = append(changes, Change{
				Topic: topic, Type: FieldAdded, FieldPath: field, NewType: newType, At: at,
			})
		case oldType != newType:
			changes = append(changes, Change{
				Topic: topic, Type: TypeChanged, FieldPath: field, OldType: oldType, NewType: newType, At: at,
			})
		}
	}
	for field, oldType := range prev {
		if _, exists := next[field]; !exists {
			changes = append(changes, Change{
				Topic: topic, Type: FieldRemoved, FieldPath: field, OldType: oldType, At: at,
			})
		}
	}
	return changes
}

// RecentChanges returns the bounded change log, oldest first.
func (t *Tracker) RecentChanges() []Change {
	return append([]Change(nil), t.changes...)
}

// SchemaFor returns the current field map for a topic.
func (t *Tracker) SchemaFor(topic string) (map[string]FieldType, bool) {
	s, ok := t.schemas[topic]
	if !ok {
		return nil, false
	}
	out := make(map[string]FieldType, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, true
}

// TopicCount returns the number of topics with a known schema.
func (t *Tracker) TopicCount() int {
	return len(t.schemas)
}

// ClearChanges empties the change log, keeping known schemas.
func (t *Tracker) ClearChanges() {
	t.changes = t.changes[:0]
}

// fingerprint maps every field path in a payload to its type. Arrays record
// their first element's shape under path[0].
func fingerprint(payload []byte) map[string]FieldType {
	fields := make(map[string]FieldType)
	walk(gjson.ParseBytes(payload), "", fields)
	return fields
}

func walk(v gjson.Result, prefix string, fields map[string]FieldType) {
	switch {
	case v.IsObject():
		if prefix != "" {
			fields[prefix] = Object
		}
		v.ForEach(func(key, value gjson.Result) bool {
			path := key.String()
			if prefix != "" {
				path = prefix + "." + path
			}
			walk(value, path, fields)
			return true
		})
	case v.IsArray():
		if prefix != "" {
			fields[prefix] = Array
		}
		if arr := v.Array(); len(arr) > 0 {
			walk(arr[0], prefix+"[0]", fields)
		}
	default:
		if prefix == "" {
			return
		}
		switch v.Type {
		case gjson.Null:
			fields[prefix] = Null
		case gjson.False, gjson.True:
			fields[prefix] = Boolean
		case gjson.Number:
			fields[prefix] = Number
		case gjson.String:
			fields[prefix] = String
		}
	}
}
