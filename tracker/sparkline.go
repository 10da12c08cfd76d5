package tracker

// Sparkline returns the history downsampled and normalized to 0..1 for the
// given width. Rendering the values into glyphs is the display layer's job.
// A flat series (max == min) normalizes to zeros.
func (s Snapshot) Sparkline(width int) []float64 {
	if width <= 0 {
		return nil
	}
	if len(s.History) == 0 {
		return []float64{0}
	}
	if s.Max <= s.Min {
		n := min(width, len(s.History))
		return make([]float64, n)
	}

	span := s.Max - s.Min
	step := 1
	if len(s.History) > width {
		step = len(s.History) / width
	}

	// Sample backwards from the newest point so the latest value is always
	// drawn, whatever the history length.
	n := min(width, len(s.History))
	out := make([]float64, n)
	last := len(s.History) - 1
	for k := 0; k < n; k++ {
		idx := last - (n-1-k)*step
		out[k] = (s.History[idx].Value - s.Min) / span
	}
	return out
}
