package render

import (
	"errors"
	"math"
	"sync"
	"testing"

	"peakmeter/pkg/meter"
)

func mustNew(t *testing.T, channels, bound int, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(channels, bound, opts...)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func running(t *testing.T, channels, bound int, opts ...Option) *Renderer {
	t.Helper()
	r := mustNew(t, channels, bound, opts...)
	if !r.Start() {
		t.Fatal("expected start to succeed")
	}
	return r
}

func TestNew_RejectsNonPositiveChannels(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New(n, 8); err == nil {
			t.Errorf("expected error for %d channels", n)
		}
	}
}

func TestOnSnapshot_ScenarioHeightsAndHold(t *testing.T) {
	r := running(t, 2, 2)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{10, 20}, Max: []float64{5, 8}})

	got := r.Channels()
	want := []ChannelVisualState{
		{HeightPx: 10, PeakHoldTopPx: 200, Active: true},
		{HeightPx: 20, PeakHoldTopPx: 197, Active: true},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestOnSnapshot_OnlyUpdatesFirstN(t *testing.T) {
	r := running(t, 4, 4)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 4, Peak: []float64{9, 9, 9, 9}, Max: []float64{1, 1, 1, 1}})
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{3, 4}, Max: []float64{2, 2}})

	got := r.Channels()
	if got[0].HeightPx != 3 || got[1].HeightPx != 4 {
		t.Errorf("first channels not updated: %+v", got[:2])
	}
	for i := 2; i < 4; i++ {
		if got[i] != (ChannelVisualState{HeightPx: 9, PeakHoldTopPx: 204, Active: true}) {
			t.Errorf("channel %d should be untouched, got %+v", i, got[i])
		}
	}
}

func TestOnSnapshot_MoreChannelsThanElements(t *testing.T) {
	r := running(t, 2, 2)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 3, Peak: []float64{1, 2, 3}})

	if got := r.Channels(); len(got) != 2 || got[1].HeightPx != 2 {
		t.Errorf("unexpected channels %+v", got)
	}
}

func TestOnSnapshot_AbsentMaxKeepsHold(t *testing.T) {
	r := running(t, 1, 1)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{50}, Max: []float64{100}})
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{40}})

	got := r.Channels()[0]
	if got.HeightPx != 40 {
		t.Errorf("expected height 40, got %v", got.HeightPx)
	}
	if got.PeakHoldTopPx != 105 {
		t.Errorf("expected hold to stay at 105, got %v", got.PeakHoldTopPx)
	}

	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{40}, Max: []float64{0}})
	if got := r.Channels()[0].PeakHoldTopPx; got != ScaleHeight {
		t.Errorf("explicit zero max should move hold to the bottom, got %v", got)
	}
}

func TestOnSnapshot_Clamps(t *testing.T) {
	r := running(t, 2, 2)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{500, 0.4}, Max: []float64{900, 0}})

	got := r.Channels()
	if got[0].HeightPx != ScaleHeight || got[0].PeakHoldTopPx != 0 {
		t.Errorf("expected clamped channel 0, got %+v", got[0])
	}
	if got[1].HeightPx != 0.4 || got[1].PeakHoldTopPx != ScaleHeight {
		t.Errorf("expected channel 1 at the bottom, got %+v", got[1])
	}

	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{math.NaN(), -3}, Max: []float64{math.NaN(), -1}})
	for i, ch := range r.Channels() {
		if ch.HeightPx != 0 || ch.PeakHoldTopPx != ScaleHeight {
			t.Errorf("channel %d: expected bottom for invalid values, got %+v", i, ch)
		}
	}
}

func TestOnSnapshot_KeepsFractionalHeights(t *testing.T) {
	r := running(t, 1, 1)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{12.345}, Max: []float64{4.5}})

	want := ChannelVisualState{HeightPx: 12.345, PeakHoldTopPx: 200.5, Active: true}
	if got := r.Channels()[0]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestOnSnapshot_IgnoredWhileIdle(t *testing.T) {
	r := mustNew(t, 2, 2)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{10, 20}})

	for i, ch := range r.Channels() {
		if ch != (ChannelVisualState{}) {
			t.Errorf("channel %d changed while idle: %+v", i, ch)
		}
	}
}

func TestReset_Idempotent(t *testing.T) {
	r := running(t, 3, 8)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 3, Peak: []float64{1, 2, 3}, Max: []float64{4, 5, 6}})

	r.Reset()
	once := r.Channels()
	r.Reset()
	twice := r.Channels()

	for i := range once {
		if once[i] != (ChannelVisualState{}) {
			t.Errorf("channel %d not zeroed: %+v", i, once[i])
		}
		if once[i] != twice[i] {
			t.Errorf("channel %d differs after second reset", i)
		}
	}
}

func TestOnCleared_ZeroesButKeepsRunning(t *testing.T) {
	r := running(t, 2, 2)
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{10, 20}, Max: []float64{5, 8}})
	r.OnCleared(meter.Zero(2, true))

	for i, ch := range r.Channels() {
		if ch != (ChannelVisualState{}) {
			t.Errorf("channel %d not cleared: %+v", i, ch)
		}
	}
	if r.State() != Running {
		t.Errorf("expected running after cleared, got %s", r.State())
	}
}

func TestStateMachine(t *testing.T) {
	r := mustNew(t, 2, 2)

	if c := r.Controls(); !c.StartEnabled || c.StopEnabled {
		t.Errorf("idle controls wrong: %+v", c)
	}
	if !r.Start() {
		t.Fatal("first start should succeed")
	}
	if r.Start() {
		t.Error("second start should be refused")
	}
	if c := r.Controls(); c.StartEnabled || !c.StopEnabled {
		t.Errorf("running controls wrong: %+v", c)
	}

	r.Stop()
	if r.State() != Idle {
		t.Errorf("expected idle after stop, got %s", r.State())
	}
	if r.ResetCount() != 1 {
		t.Errorf("expected one reset on stop, got %d", r.ResetCount())
	}
	r.Stop()
	if r.ResetCount() != 1 {
		t.Errorf("stop while idle should not reset again, got %d", r.ResetCount())
	}
}

func TestOnClosed_ResetsOnce(t *testing.T) {
	var mu sync.Mutex
	var changes []Change
	r := running(t, 2, 2, WithListener(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))
	r.OnSnapshot(meter.Snapshot{ChannelCount: 2, Peak: []float64{10, 20}, Max: []float64{5, 8}})

	before := r.ResetCount()
	r.OnClosed(errors.New("connection lost"))
	r.OnClosed(errors.New("connection lost"))

	if r.State() != Idle {
		t.Errorf("expected idle after closure, got %s", r.State())
	}
	if got := r.ResetCount() - before; got != 1 {
		t.Errorf("expected exactly one reset, got %d", got)
	}
	if c := r.Controls(); !c.StartEnabled || c.StopEnabled {
		t.Errorf("controls not restored: %+v", c)
	}

	mu.Lock()
	defer mu.Unlock()
	last := changes[len(changes)-1]
	if last.Kind != ChangeState || last.State != Idle {
		t.Errorf("expected final idle state change, got %+v", last)
	}
	for i, ch := range last.Channels {
		if ch != (ChannelVisualState{}) {
			t.Errorf("listener saw channel %d not reset: %+v", i, ch)
		}
	}
}

func TestListener_ReportsXruns(t *testing.T) {
	var last Change
	r := running(t, 1, 1, WithListener(func(c Change) { last = c }))

	if last.Xruns != -1 {
		t.Errorf("expected -1 before any xruns, got %d", last.Xruns)
	}
	xr := 3
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{1}, Xruns: &xr})
	if last.Kind != ChangeSnapshot || last.Xruns != 3 {
		t.Errorf("unexpected change %+v", last)
	}
}
