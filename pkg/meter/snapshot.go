package meter

import "fmt"

// Snapshot is one complete set of per-channel peak and peak-hold values.
type Snapshot struct {
	ChannelCount int
	Peak         []float64
	// Max is nil when the producer omitted peak-hold data. An empty or all-zero
	// slice is a present value.
	Max []float64
	// Xruns is the producer's xrun counter, nil when not reported.
	Xruns *int
}

// HasMax reports whether the snapshot carries peak-hold values.
func (s Snapshot) HasMax() bool { return s.Max != nil }

// Validate checks the length and range invariants of the snapshot.
func (s Snapshot) Validate() error {
	if s.ChannelCount < 0 {
		return fmt.Errorf("%w: negative channel count %d", ErrMalformed, s.ChannelCount)
	}
	if len(s.Peak) != s.ChannelCount {
		return fmt.Errorf("%w: peak has %d values for %d channels", ErrMalformed, len(s.Peak), s.ChannelCount)
	}
	if s.Max != nil && len(s.Max) != s.ChannelCount {
		return fmt.Errorf("%w: max has %d values for %d channels", ErrMalformed, len(s.Max), s.ChannelCount)
	}
	for i, v := range s.Peak {
		if v < 0 {
			return fmt.Errorf("%w: peak[%d] is negative (%g)", ErrMalformed, i, v)
		}
	}
	for i, v := range s.Max {
		if v < 0 {
			return fmt.Errorf("%w: max[%d] is negative (%g)", ErrMalformed, i, v)
		}
	}
	if s.Xruns != nil && *s.Xruns < 0 {
		return fmt.Errorf("%w: negative xrun count %d", ErrMalformed, *s.Xruns)
	}
	return nil
}

// Zero returns an all-zero snapshot for n channels.
func Zero(n int, withMax bool) Snapshot {
	if n < 0 {
		n = 0
	}
	s := Snapshot{ChannelCount: n, Peak: make([]float64, n)}
	if withMax {
		s.Max = make([]float64, n)
	}
	return s
}

// Clone returns a deep copy so callers can keep a snapshot past the callback.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{ChannelCount: s.ChannelCount}
	if s.Peak != nil {
		out.Peak = append(make([]float64, 0, len(s.Peak)), s.Peak...)
	}
	if s.Max != nil {
		out.Max = append(make([]float64, 0, len(s.Max)), s.Max...)
	}
	if s.Xruns != nil {
		x := *s.Xruns
		out.Xruns = &x
	}
	return out
}
