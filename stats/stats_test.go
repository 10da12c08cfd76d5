package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an advanceable clock for deterministic window and health tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time              { return c.now }
func (c *fakeClock) Advance(d time.Duration)     { c.now = c.now.Add(d) }
func (c *fakeClock) UnixMilli() int64            { return c.now.UnixMilli() }

func TestRateConvergence(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithWindow(10*time.Second), WithNow(clock.Now))

	// 5 msg/sec for 12 seconds, longer than the window
	for i := 0; i < 60; i++ {
		e.RecordMessage("sensors/temp", 100, clock.UnixMilli(), 0)
		clock.Advance(200 * time.Millisecond)
	}

	snap := e.Snapshot()
	assert.InDelta(t, 5.0, snap.RatePerSec, 0.5)
	assert.InDelta(t, 500.0, snap.ByteRate, 50.0)
	assert.Equal(t, uint64(60), snap.TotalCount)
	assert.Equal(t, uint64(6000), snap.TotalBytes)
}

func TestRateDecaysToZero(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithWindow(10*time.Second), WithNow(clock.Now))

	for i := 0; i < 20; i++ {
		e.RecordMessage("sensors/temp", 50, clock.UnixMilli(), 0)
		clock.Advance(100 * time.Millisecond)
	}
	require.Greater(t, e.Snapshot().RatePerSec, 0.0)

	// One full window after traffic stops, rate is zero; totals persist
	clock.Advance(10 * time.Second)
	snap := e.Snapshot()
	assert.Zero(t, snap.RatePerSec)
	assert.Zero(t, snap.ByteRate)
	assert.Equal(t, uint64(20), snap.TotalCount)
}

func TestHealthTransitions(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(
		WithNow(clock.Now),
		WithHealthThresholds(60*time.Second, 300*time.Second),
	)

	e.RecordMessage("telemetry/device-1/meter/data", 100, clock.UnixMilli(), 0)

	snap := e.Snapshot()
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, Healthy, snap.Devices[0].Status)
	assert.Equal(t, HealthSummary{Healthy: 1}, snap.Health)

	// Past healthy threshold with no new messages
	clock.Advance(90 * time.Second)
	snap = e.Snapshot()
	assert.Equal(t, Warning, snap.Devices[0].Status)
	assert.Equal(t, HealthSummary{Warning: 1}, snap.Health)

	// Past stale threshold
	clock.Advance(4 * time.Minute)
	snap = e.Snapshot()
	assert.Equal(t, Stale, snap.Devices[0].Status)
	assert.Equal(t, HealthSummary{Stale: 1}, snap.Health)

	// A new message restores health on the next snapshot
	e.RecordMessage("telemetry/device-1/meter/data", 100, clock.UnixMilli(), 0)
	snap = e.Snapshot()
	assert.Equal(t, Healthy, snap.Devices[0].Status)
}

func TestDeviceTracking(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	e.RecordMessage("telemetry/dev1/meter/data", 100, clock.UnixMilli(), 0)
	clock.Advance(time.Second)
	e.RecordMessage("telemetry/dev1/meter/data", 150, clock.UnixMilli(), 0)
	e.RecordMessage("telemetry/dev2/inverter/data", 200, clock.UnixMilli(), 0)
	e.RecordMessage("status/broker", 10, clock.UnixMilli(), 0)

	assert.Equal(t, 2, e.DeviceCount())

	snap := e.Snapshot()
	require.Len(t, snap.Devices, 2)

	var dev1 DeviceInfo
	for _, d := range snap.Devices {
		if d.ID == "dev1" {
			dev1 = d
		}
	}
	assert.Equal(t, uint64(2), dev1.MessageCount)
	assert.Equal(t, "meter", dev1.Type)
	assert.Equal(t, 150, dev1.LastSize)
	assert.Equal(t, []string{"telemetry/dev1/meter/data"}, dev1.Topics)
}

func TestDeviceIDExtraction(t *testing.T) {
	tests := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"telemetry/zap-0000d8c4/meter/zap/json", "zap-0000d8c4", true},
		{"devices/dev123/status", "dev123", true},
		{"sites/site1/devices/dev456/telemetry", "dev456", true},
		{"random/topic", "", false},
		{"telemetry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := DeviceID(tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	assert.Equal(t, "meter", DeviceType("telemetry/dev1/meter/data"))
	assert.Empty(t, DeviceType("devices/dev1/status"))
}

func TestLatencyFromClaimedTimestamps(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	now := clock.UnixMilli()
	e.RecordMessage("sensors/a", 10, now, now-100)
	clock.Advance(time.Second)
	now = clock.UnixMilli()
	e.RecordMessage("sensors/a", 10, now, now-300)

	snap := e.Snapshot()
	require.True(t, snap.HasLatency)
	assert.InDelta(t, 200.0, snap.LatencyAvgMs, 0.01)
	assert.Equal(t, int64(100), snap.LatencyMinMs)
	assert.Equal(t, int64(300), snap.LatencyMaxMs)
}

func TestLatencyIgnoresBadClocks(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	now := clock.UnixMilli()
	// Claimed timestamp in the future, and one older than an hour
	e.RecordMessage("sensors/a", 10, now, now+5000)
	e.RecordMessage("sensors/a", 10, now, now-7_200_000)
	// Absent claimed timestamp disables latency without error
	e.RecordMessage("sensors/a", 10, now, 0)

	assert.False(t, e.Snapshot().HasLatency)
}

func TestJitter(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	// Perfectly regular arrivals: jitter approaches zero
	for i := 0; i < 10; i++ {
		e.RecordMessage("sensors/a", 10, clock.UnixMilli(), 0)
		clock.Advance(100 * time.Millisecond)
	}
	jitter, ok := e.Snapshot().JitterMs, e.Snapshot().HasJitter
	require.True(t, ok)
	assert.InDelta(t, 0.0, jitter, 0.01)

	// Irregular arrivals raise it
	for i := 0; i < 10; i++ {
		e.RecordMessage("sensors/a", 10, clock.UnixMilli(), 0)
		if i%2 == 0 {
			clock.Advance(10 * time.Millisecond)
		} else {
			clock.Advance(500 * time.Millisecond)
		}
	}
	snap := e.Snapshot()
	require.True(t, snap.HasJitter)
	assert.Greater(t, snap.JitterMs, 100.0)
}

func TestCategoryCounts(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	e.RecordMessage("sensors/a", 10, clock.UnixMilli(), 0)
	e.RecordMessage("sensors/b", 10, clock.UnixMilli(), 0)
	e.RecordMessage("status", 10, clock.UnixMilli(), 0)

	snap := e.Snapshot()
	assert.Equal(t, uint64(2), snap.Categories["sensors"])
	assert.Equal(t, uint64(1), snap.Categories["status"])

	_, ok := e.CategoryJitter("sensors")
	assert.False(t, ok, "one inter-arrival sample is not enough for jitter")
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(WithNow(clock.Now))

	e.RecordMessage("telemetry/dev1/meter/data", 100, clock.UnixMilli(), 0)
	e.Reset()

	snap := e.Snapshot()
	assert.Zero(t, snap.TotalCount)
	assert.Zero(t, snap.TotalBytes)
	assert.Empty(t, snap.Devices)
	assert.Empty(t, snap.Categories)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "500 B", FormatBytes(500))
	assert.Equal(t, "1.50 KB", FormatBytes(1536))
	assert.Equal(t, "1.50 MB", FormatBytes(1_572_864))
	assert.Equal(t, "1.50 GB", FormatBytes(1_610_612_736))

	assert.Equal(t, "0.50/s", FormatRate(0.5))
	assert.Equal(t, "5.5/s", FormatRate(5.5))
	assert.Equal(t, "1.5k/s", FormatRate(1500))

	assert.Equal(t, "50ms", FormatDuration(50*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "1.5m", FormatDuration(90*time.Second))

	assert.Equal(t, "45s", FormatUptime(45*time.Second))
	assert.Equal(t, "2m 5s", FormatUptime(125*time.Second))
	assert.Equal(t, "1h 30m", FormatUptime(90*time.Minute))
}
