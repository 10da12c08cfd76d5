package tracker

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/frahlg/mqtop/errors"
	"github.com/frahlg/mqtop/pkg/timestamp"
	"github.com/frahlg/mqtop/topics"
)

// DefaultMaxPoints bounds the history kept per tracked metric.
const DefaultMaxPoints = 60

// Point is one sampled value with its receive time.
type Point struct {
	At    int64   `json:"at"`
	Value float64 `json:"value"`
}

// metric is the internal state of one tracked field.
type metric struct {
	id        string
	label     string
	pattern   string
	fieldPath string

	points []Point
	min    float64
	max    float64
	sum    float64
	count  uint64
}

// Snapshot is the read-only view of one tracked metric.
type Snapshot struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Pattern   string  `json:"pattern"`
	FieldPath string  `json:"field_path"`
	LastValue float64 `json:"last_value"`
	HasValue  bool    `json:"has_value"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Avg       float64 `json:"avg"`
	Count     uint64  `json:"count"`
	History   []Point `json:"history"`
}

// Tracker samples numeric fields out of matching message payloads. Owned by
// the ingestion loop; not safe for concurrent use.
type Tracker struct {
	metrics   map[string]*metric
	maxPoints int
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxPoints sets the per-metric history bound.
func WithMaxPoints(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxPoints = n
		}
	}
}

// WithNow overrides the sample clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		metrics:   make(map[string]*metric),
		maxPoints: DefaultMaxPoints,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track registers a pattern+field pair and returns its id. The pattern is
// validated up front; the field path is taken as-is since absence on some
// message variants is legitimate.
func (t *Tracker) Track(label, pattern, fieldPath string) (string, error) {
	if err := topics.ValidatePattern(pattern); err != nil {
		return "", err
	}
	if fieldPath == "" {
		return "", errors.WrapInvalid(errors.ErrFieldNotFound, "tracker", "Track", "validate field path")
	}
	if label == "" {
		label = pattern + " " + fieldPath
	}

	id := uuid.NewString()
	t.metrics[id] = &metric{
		id:        id,
		label:     label,
		pattern:   pattern,
		fieldPath: fieldPath,
	}
	return id, nil
}

// Untrack removes a tracked metric.
func (t *Tracker) Untrack(id string) error {
	if _, ok := t.metrics[id]; !ok {
		return errors.ErrMetricNotFound
	}
	delete(t.metrics, id)
	return nil
}

// Sample is the ingestion hook, invoked for every message. A non-JSON
// payload, non-matching topic, or missing/non-numeric field is silently
// skipped for that metric; the last value stays unchanged.
func (t *Tracker) Sample(topic string, payload []byte) {
	if len(t.metrics) == 0 || !gjson.ValidBytes(payload) {
		return
	}
	at := timestamp.ToUnixMs(t.now())

	for _, m := range t.metrics {
		if !topics.Match(m.pattern, topic) {
			continue
		}
		value, ok := numericValue(gjson.GetBytes(payload, m.fieldPath))
		if !ok {
			continue
		}
		m.record(at, value, t.maxPoints)
	}
}

func (m *metric) record(at int64, value float64, maxPoints int) {
	m.points = append(m.points, Point{At: at, Value: value})
	if len(m.points) > maxPoints {
		m.points = m.points[len(m.points)-maxPoints:]
	}
	if m.count == 0 || value < m.min {
		m.min = value
	}
	if m.count == 0 || value > m.max {
		m.max = value
	}
	m.sum += value
	m.count++
}

// Get returns the snapshot of one metric by id.
func (t *Tracker) Get(id string) (Snapshot, error) {
	m, ok := t.metrics[id]
	if !ok {
		return Snapshot{}, errors.ErrMetricNotFound
	}
	return m.snapshot(), nil
}

// Snapshots returns all tracked metrics sorted by label, then id.
func (t *Tracker) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(t.metrics))
	for _, m := range t.metrics {
		out = append(out, m.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of tracked metrics.
func (t *Tracker) Len() int {
	return len(t.metrics)
}

func (m *metric) snapshot() Snapshot {
	snap := Snapshot{
		ID:        m.id,
		Label:     m.label,
		Pattern:   m.pattern,
		FieldPath: m.fieldPath,
		Min:       m.min,
		Max:       m.max,
		Count:     m.count,
		History:   append([]Point(nil), m.points...),
	}
	if m.count > 0 {
		snap.Avg = m.sum / float64(m.count)
		snap.LastValue = m.points[len(m.points)-1].Value
		snap.HasValue = true
	}
	return snap
}

// numericValue coerces a JSON value to float64. Numbers pass through;
// numeric strings parse; everything else is not a sample.
func numericValue(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// NumericFields walks a JSON payload and returns every numeric leaf as a
// dotted path with its value, for interactive field selection.
func NumericFields(payload []byte) map[string]float64 {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	fields := make(map[string]float64)
	collectNumeric(gjson.ParseBytes(payload), "", fields)
	return fields
}

func collectNumeric(v gjson.Result, prefix string, fields map[string]float64) {
	if v.IsObject() {
		v.ForEach(func(key, value gjson.Result) bool {
			path := key.String()
			if prefix != "" {
				path = prefix + "." + path
			}
			collectNumeric(value, path, fields)
			return true
		})
		return
	}
	if f, ok := numericValue(v); ok && prefix != "" {
		fields[prefix] = f
	}
}
