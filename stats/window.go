package stats

import "time"

// DefaultWindow is the rolling duration for rate calculations.
const DefaultWindow = 10 * time.Second

type windowEntry struct {
	at   int64 // unix millis
	size int
}

// window is a rolling deque of (timestamp, size) pairs pruned to a fixed
// duration. Rates are count-in-window over window seconds, so they decay to
// zero within one window after traffic stops instead of averaging lifetime.
type window struct {
	duration time.Duration
	entries  []windowEntry
	bytes    uint64 // sum of sizes currently retained
}

func newWindow(d time.Duration) *window {
	if d <= 0 {
		d = DefaultWindow
	}
	return &window{duration: d}
}

func (w *window) add(at int64, size int) {
	w.entries = append(w.entries, windowEntry{at: at, size: size})
	w.bytes += uint64(size)
	w.prune(at)
}

// prune drops entries older than the window. Called on every add and on
// every rate read so an idle window still decays.
func (w *window) prune(now int64) {
	cutoff := now - w.duration.Milliseconds()
	i := 0
	for i < len(w.entries) && w.entries[i].at < cutoff {
		w.bytes -= uint64(w.entries[i].size)
		i++
	}
	if i > 0 {
		w.entries = w.entries[:copy(w.entries, w.entries[i:])]
	}
}

func (w *window) rate(now int64) float64 {
	w.prune(now)
	return float64(len(w.entries)) / w.duration.Seconds()
}

func (w *window) byteRate(now int64) float64 {
	w.prune(now)
	return float64(w.bytes) / w.duration.Seconds()
}

func (w *window) reset() {
	w.entries = w.entries[:0]
	w.bytes = 0
}
