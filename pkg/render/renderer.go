package render

import (
	"fmt"
	"sync"

	"peakmeter/pkg/meter"
)

// ScaleHeight is the height of a meter bar in display units. Peak-hold
// positions are measured down from the top of the scale.
const ScaleHeight = 205

// State is the control state of the renderer.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChannelVisualState is what one meter shows. Heights are on the display
// scale and keep their fractional part; views round when they draw.
type ChannelVisualState struct {
	HeightPx      float64
	PeakHoldTopPx float64
	Active        bool
}

// Controls reports which user actions are currently available.
type Controls struct {
	StartEnabled bool
	StopEnabled  bool
}

// ChangeKind says what caused a change notification.
type ChangeKind int

const (
	ChangeSnapshot ChangeKind = iota
	ChangeReset
	ChangeState
)

// Change is passed to the listener after every visible update.
type Change struct {
	Kind     ChangeKind
	State    State
	Channels []ChannelVisualState
	// Xruns is the producer's overrun counter from the last snapshot, or -1.
	Xruns int
}

type Option func(*Renderer)

// WithListener registers fn to be called after every change. fn runs on the
// goroutine that caused the change and must not call back into the renderer.
func WithListener(fn func(Change)) Option {
	return func(r *Renderer) { r.listener = fn }
}

// SetListener replaces the change listener. See WithListener.
func (r *Renderer) SetListener(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

// Renderer keeps one ChannelVisualState per channel and applies snapshots and
// transport events to it. It is safe for concurrent use.
type Renderer struct {
	mu       sync.Mutex
	channels []ChannelVisualState
	maxBound int
	state    State
	resets   int
	xruns    int
	listener func(Change)
}

// New creates an idle renderer with the given number of channel elements.
// maxBound is how many channels a reset addresses; elements beyond the
// configured count are skipped.
func New(channels, maxBound int, opts ...Option) (*Renderer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be greater than 0, got %d", channels)
	}
	if maxBound < channels {
		maxBound = channels
	}
	r := &Renderer{
		channels: make([]ChannelVisualState, channels),
		maxBound: maxBound,
		xruns:    -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start moves Idle to Running. It returns false if already running.
func (r *Renderer) Start() bool {
	r.mu.Lock()
	if r.state == Running {
		r.mu.Unlock()
		return false
	}
	r.state = Running
	change := r.changeLocked(ChangeState)
	r.mu.Unlock()

	r.notify(change)
	return true
}

// Stop moves Running to Idle and resets every channel.
func (r *Renderer) Stop() {
	r.toIdle()
}

// OnSnapshot applies s to the first s.ChannelCount channels. Channels beyond
// that are untouched. Snapshots arriving while idle are ignored.
func (r *Renderer) OnSnapshot(s meter.Snapshot) {
	r.mu.Lock()
	if r.state != Running {
		r.mu.Unlock()
		return
	}
	for i := 0; i < s.ChannelCount && i < len(r.channels); i++ {
		ch := &r.channels[i]
		ch.HeightPx = clamp(s.Peak[i])
		ch.Active = true
		if s.HasMax() {
			ch.PeakHoldTopPx = ScaleHeight - clamp(s.Max[i])
		}
	}
	if s.Xruns != nil {
		r.xruns = *s.Xruns
	}
	change := r.changeLocked(ChangeSnapshot)
	r.mu.Unlock()

	r.notify(change)
}

// OnCleared falls back to the all-zero inactive display. The renderer stays
// running.
func (r *Renderer) OnCleared(meter.Snapshot) {
	r.mu.Lock()
	if r.state != Running {
		r.mu.Unlock()
		return
	}
	r.resetLocked()
	change := r.changeLocked(ChangeReset)
	r.mu.Unlock()

	r.notify(change)
}

// OnClosed handles the end of the stream: Running becomes Idle and the
// channels are reset.
func (r *Renderer) OnClosed(error) {
	r.toIdle()
}

// Reset zeroes every channel up to the reset bound.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.resetLocked()
	change := r.changeLocked(ChangeReset)
	r.mu.Unlock()

	r.notify(change)
}

func (r *Renderer) toIdle() {
	r.mu.Lock()
	if r.state != Running {
		r.mu.Unlock()
		return
	}
	r.state = Idle
	r.resetLocked()
	change := r.changeLocked(ChangeState)
	r.mu.Unlock()

	r.notify(change)
}

func (r *Renderer) resetLocked() {
	for i := 0; i < r.maxBound; i++ {
		if i >= len(r.channels) {
			continue
		}
		r.channels[i] = ChannelVisualState{}
	}
	r.resets++
}

// Channels returns a copy of the current per-channel state.
func (r *Renderer) Channels() []ChannelVisualState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Renderer) Controls() Controls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Controls{StartEnabled: r.state == Idle, StopEnabled: r.state == Running}
}

// Xruns returns the last overrun count reported by the producer, or -1.
func (r *Renderer) Xruns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.xruns
}

// ResetCount returns how many times the channels have been reset.
func (r *Renderer) ResetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func (r *Renderer) copyLocked() []ChannelVisualState {
	out := make([]ChannelVisualState, len(r.channels))
	copy(out, r.channels)
	return out
}

type notification struct {
	fn     func(Change)
	change Change
}

func (r *Renderer) changeLocked(kind ChangeKind) *notification {
	if r.listener == nil {
		return nil
	}
	return &notification{
		fn:     r.listener,
		change: Change{Kind: kind, State: r.state, Channels: r.copyLocked(), Xruns: r.xruns},
	}
}

func (r *Renderer) notify(n *notification) {
	if n != nil {
		n.fn(n.change)
	}
}

func clamp(v float64) float64 {
	switch {
	case v != v || v <= 0:
		return 0
	case v >= ScaleHeight:
		return ScaleHeight
	default:
		return v
	}
}
