package stats

import "math"

// maxAcceptedLatencyMs bounds claimed-timestamp latencies; anything negative
// or over an hour is treated as a bad device clock and ignored.
const maxAcceptedLatencyMs = int64(3600_000)

// latencyTracker accumulates payload latencies (received minus claimed) and
// inter-arrival deltas over a bounded sample window.
type latencyTracker struct {
	maxSamples int

	interArrivals []float64 // millis, bounded
	lastArrival   int64

	latencyMin   int64
	latencyMax   int64
	latencyTotal int64
	latencyCount uint64
}

func newLatencyTracker(maxSamples int) *latencyTracker {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &latencyTracker{maxSamples: maxSamples, latencyMin: math.MaxInt64}
}

// record takes a receive time and an optional claimed timestamp (0 = none).
func (lt *latencyTracker) record(receivedAt, claimedAt int64) {
	if lt.lastArrival != 0 {
		delta := float64(receivedAt - lt.lastArrival)
		if delta >= 0 {
			if len(lt.interArrivals) >= lt.maxSamples {
				lt.interArrivals = lt.interArrivals[1:]
			}
			lt.interArrivals = append(lt.interArrivals, delta)
		}
	}
	lt.lastArrival = receivedAt

	if claimedAt == 0 {
		return
	}
	latency := receivedAt - claimedAt
	if latency < 0 || latency >= maxAcceptedLatencyMs {
		return
	}
	if latency < lt.latencyMin {
		lt.latencyMin = latency
	}
	if latency > lt.latencyMax {
		lt.latencyMax = latency
	}
	lt.latencyTotal += latency
	lt.latencyCount++
}

// avgLatency returns the mean payload latency in millis, ok=false when no
// message carried a usable claimed timestamp.
func (lt *latencyTracker) avgLatency() (float64, bool) {
	if lt.latencyCount == 0 {
		return 0, false
	}
	return float64(lt.latencyTotal) / float64(lt.latencyCount), true
}

// minMaxLatency returns the latency extremes in millis, ok=false when no
// message carried a usable claimed timestamp.
func (lt *latencyTracker) minMaxLatency() (int64, int64, bool) {
	if lt.latencyCount == 0 {
		return 0, 0, false
	}
	return lt.latencyMin, lt.latencyMax, true
}

// jitter is the standard deviation of inter-arrival deltas in millis.
// Needs at least two samples to be meaningful.
func (lt *latencyTracker) jitter() (float64, bool) {
	if len(lt.interArrivals) < 2 {
		return 0, false
	}
	var sum float64
	for _, d := range lt.interArrivals {
		sum += d
	}
	mean := sum / float64(len(lt.interArrivals))

	var variance float64
	for _, d := range lt.interArrivals {
		diff := d - mean
		variance += diff * diff
	}
	variance /= float64(len(lt.interArrivals))
	return math.Sqrt(variance), true
}

func (lt *latencyTracker) reset() {
	lt.interArrivals = lt.interArrivals[:0]
	lt.lastArrival = 0
	lt.latencyMin = math.MaxInt64
	lt.latencyMax = 0
	lt.latencyTotal = 0
	lt.latencyCount = 0
}
