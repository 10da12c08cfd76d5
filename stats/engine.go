package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/frahlg/mqtop/pkg/timestamp"
)

// Engine accumulates streaming statistics over the message flow. It is owned
// by the ingestion loop and must not be shared across goroutines. All time
// arithmetic runs against an injectable clock so tests stay deterministic.
type Engine struct {
	window  *window
	overall *latencyTracker

	totalCount uint64
	totalBytes uint64
	startedAt  int64

	categories map[string]uint64
	perCat     map[string]*latencyTracker
	devices    map[string]*deviceRecord

	healthyThreshold time.Duration
	staleThreshold   time.Duration
	maxSamples       int

	now func() time.Time
}

// Snapshot is a read-only view computed on demand. Rates reflect the rolling
// window at snapshot time; health is reclassified from last-seen ages.
type Snapshot struct {
	TotalCount   uint64             `json:"total_count"`
	TotalBytes   uint64             `json:"total_bytes"`
	RatePerSec   float64            `json:"rate_per_sec"`
	ByteRate     float64            `json:"byte_rate"`
	LatencyAvgMs float64            `json:"latency_avg_ms"`
	LatencyMinMs int64              `json:"latency_min_ms"`
	LatencyMaxMs int64              `json:"latency_max_ms"`
	HasLatency   bool               `json:"has_latency"`
	JitterMs     float64            `json:"jitter_ms"`
	HasJitter    bool               `json:"has_jitter"`
	Categories   map[string]uint64  `json:"categories"`
	Devices      []DeviceInfo       `json:"devices"`
	Health       HealthSummary      `json:"health"`
	UptimeMs     int64              `json:"uptime_ms"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets the rolling window for rate calculations.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = newWindow(d)
		}
	}
}

// WithHealthThresholds sets the healthy and stale age cutoffs.
func WithHealthThresholds(healthy, stale time.Duration) Option {
	return func(e *Engine) {
		if healthy > 0 && stale > healthy {
			e.healthyThreshold = healthy
			e.staleThreshold = stale
		}
	}
}

// WithMaxSamples bounds the inter-arrival sample buffers.
func WithMaxSamples(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSamples = n
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine with a 10s window and default thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		window:           newWindow(DefaultWindow),
		categories:       make(map[string]uint64),
		perCat:           make(map[string]*latencyTracker),
		devices:          make(map[string]*deviceRecord),
		healthyThreshold: DefaultHealthyThreshold,
		staleThreshold:   DefaultStaleThreshold,
		maxSamples:       100,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.overall = newLatencyTracker(e.maxSamples)
	e.startedAt = timestamp.ToUnixMs(e.now())
	return e
}

// RecordMessage folds one message into the rolling and lifetime counters.
// claimedAt is 0 when the payload carried no usable embedded timestamp;
// that disables latency for this message without error.
func (e *Engine) RecordMessage(topic string, size int, receivedAt, claimedAt int64) {
	e.window.add(receivedAt, size)
	e.totalCount++
	e.totalBytes += uint64(size)
	e.overall.record(receivedAt, claimedAt)

	cat := category(topic)
	e.categories[cat]++
	lt, ok := e.perCat[cat]
	if !ok {
		lt = newLatencyTracker(e.maxSamples)
		e.perCat[cat] = lt
	}
	lt.record(receivedAt, claimedAt)

	if id, ok := DeviceID(topic); ok {
		dev, ok := e.devices[id]
		if !ok {
			dev = &deviceRecord{id: id, deviceType: DeviceType(topic)}
			e.devices[id] = dev
		}
		if dev.deviceType == "" {
			dev.deviceType = DeviceType(topic)
		}
		dev.observe(topic, size, receivedAt)
	}
}

// Snapshot computes the current view. Pull-based: device health is
// reclassified here from last-seen age, no per-device timers exist.
func (e *Engine) Snapshot() Snapshot {
	now := timestamp.ToUnixMs(e.now())

	snap := Snapshot{
		TotalCount: e.totalCount,
		TotalBytes: e.totalBytes,
		RatePerSec: e.window.rate(now),
		ByteRate:   e.window.byteRate(now),
		Categories: make(map[string]uint64, len(e.categories)),
		UptimeMs:   now - e.startedAt,
	}
	for cat, n := range e.categories {
		snap.Categories[cat] = n
	}
	snap.LatencyAvgMs, snap.HasLatency = e.overall.avgLatency()
	snap.LatencyMinMs, snap.LatencyMaxMs, _ = e.overall.minMaxLatency()
	snap.JitterMs, snap.HasJitter = e.overall.jitter()

	snap.Devices = make([]DeviceInfo, 0, len(e.devices))
	for _, dev := range e.devices {
		age := time.Duration(now-dev.lastSeen) * time.Millisecond
		status := classify(age, e.healthyThreshold, e.staleThreshold)
		switch status {
		case Healthy:
			snap.Health.Healthy++
		case Warning:
			snap.Health.Warning++
		case Stale:
			snap.Health.Stale++
		}
		snap.Devices = append(snap.Devices, DeviceInfo{
			ID:           dev.id,
			Type:         dev.deviceType,
			MessageCount: dev.messageCount,
			LastSeen:     dev.lastSeen,
			LastSize:     dev.lastSize,
			Topics:       append([]string(nil), dev.topics...),
			Status:       status,
		})
	}
	// Most recently active first, id for determinism on ties
	sort.Slice(snap.Devices, func(i, j int) bool {
		if snap.Devices[i].LastSeen != snap.Devices[j].LastSeen {
			return snap.Devices[i].LastSeen > snap.Devices[j].LastSeen
		}
		return snap.Devices[i].ID < snap.Devices[j].ID
	})

	return snap
}

// CategoryJitter returns the inter-arrival jitter for one category in millis.
func (e *Engine) CategoryJitter(cat string) (float64, bool) {
	if lt, ok := e.perCat[cat]; ok {
		return lt.jitter()
	}
	return 0, false
}

// DeviceCount returns the number of devices seen so far.
func (e *Engine) DeviceCount() int {
	return len(e.devices)
}

// Reset clears all counters, samples, and device records.
func (e *Engine) Reset() {
	e.window.reset()
	e.overall.reset()
	e.totalCount = 0
	e.totalBytes = 0
	e.categories = make(map[string]uint64)
	e.perCat = make(map[string]*latencyTracker)
	e.devices = make(map[string]*deviceRecord)
	e.startedAt = timestamp.ToUnixMs(e.now())
}

// category groups topics by their first path segment.
func category(topic string) string {
	if i := strings.IndexByte(topic, '/'); i >= 0 {
		return topic[:i]
	}
	return topic
}
