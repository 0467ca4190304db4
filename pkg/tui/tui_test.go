package tui

import (
	"context"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gdamore/tcell/v2"

	"peakmeter/pkg/meter"
	"peakmeter/pkg/monitor"
	"peakmeter/pkg/render"
	"peakmeter/pkg/source"
	"peakmeter/pkg/telemetry"
)

type stubSource struct {
	starts, stops atomic.Int32
}

func (s *stubSource) Start(context.Context) error  { s.starts.Add(1); return nil }
func (s *stubSource) Stop()                        { s.stops.Add(1) }
func (s *stubSource) State() source.TransportState { return source.StateActive }
func (s *stubSource) Transport() string            { return "poll" }

type stubReader struct{ snap telemetry.Snapshot }

func (r stubReader) Snapshot() telemetry.Snapshot { return r.snap }

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func background(screen tcell.Screen, x, y int) tcell.Color {
	_, _, style, _ := screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestMeterView_DrawsActiveAndInactiveChannels(t *testing.T) {
	r, _ := render.New(2, 2)
	r.Start()
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{205}, Max: []float64{205}})

	screen := newSimScreen(t, 20, 12)
	view := NewMeterView(r)
	view.SetRect(0, 0, 20, 12)
	view.Draw(screen)

	// Inner area starts at (1,1); 10 rows high with 9 bar rows and a label row.
	top := 1
	ch0, ch1 := 1, 1+barWidth+barGap

	if bg := background(screen, ch1, top); bg != inactiveBackground {
		t.Errorf("expected inactive background for channel 2, got %v", bg)
	}
	if bg := background(screen, ch0, top+8); bg == inactiveBackground || bg == activeBackground {
		t.Errorf("expected a filled bar cell for channel 1, got %v", bg)
	}

	mainc, _, _, _ := screen.GetContent(ch0, top)
	if mainc != '▀' {
		t.Errorf("expected peak-hold marker at the top of channel 1, got %q", mainc)
	}
	label, _, _, _ := screen.GetContent(ch0+barWidth-1, top+9)
	if label != '1' {
		t.Errorf("expected channel label 1, got %q", label)
	}
}

func TestMeterView_ActiveBackgroundAboveBar(t *testing.T) {
	r, _ := render.New(1, 1)
	r.Start()
	r.OnSnapshot(meter.Snapshot{ChannelCount: 1, Peak: []float64{0}})

	screen := newSimScreen(t, 10, 12)
	view := NewMeterView(r)
	view.SetRect(0, 0, 10, 12)
	view.Draw(screen)

	if bg := background(screen, 1, 4); bg != activeBackground {
		t.Errorf("expected active background, got %v", bg)
	}
}

func TestScaleRows(t *testing.T) {
	tests := []struct {
		height         float64
		rows, expected int
	}{
		{0, 10, 0},
		{0.2, 10, 1},
		{1, 10, 1},
		{30.75, 10, 2},
		{205, 10, 10},
		{103, 10, 5},
		{500, 10, 10},
	}
	for _, tt := range tests {
		if got := scaleRows(tt.height, tt.rows); got != tt.expected {
			t.Errorf("scaleRows(%v, %d) = %d; expected %d", tt.height, tt.rows, got, tt.expected)
		}
	}
}

func TestHandleKey_StartStop(t *testing.T) {
	src := &stubSource{}
	r, _ := render.New(2, 2)
	mon := monitor.New(src, r, log.New(io.Discard, "", 0))
	a := New(mon, stubReader{}, log.New(io.Discard, "", 0))

	if a.handleKey(tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone)) != nil {
		t.Error("expected 's' to be consumed")
	}
	if r.State() != render.Running || src.starts.Load() != 1 {
		t.Fatalf("expected running, got %s", r.State())
	}

	a.handleKey(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone))
	if r.State() != render.Idle || src.stops.Load() != 1 {
		t.Errorf("expected idle after stop, got %s", r.State())
	}

	a.handleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	if r.State() != render.Running {
		t.Errorf("expected space to toggle back on, got %s", r.State())
	}

	ev := tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)
	if a.handleKey(ev) != ev {
		t.Error("unbound keys should pass through")
	}
}

func TestHandleKey_RespectsControls(t *testing.T) {
	src := &stubSource{}
	r, _ := render.New(2, 2)
	mon := monitor.New(src, r, log.New(io.Discard, "", 0))
	a := New(mon, stubReader{}, log.New(io.Discard, "", 0))

	if !a.stopBtn.IsDisabled() || a.startBtn.IsDisabled() {
		t.Error("expected only start to be enabled while idle")
	}
	a.handleKey(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone))
	if src.stops.Load() != 0 {
		t.Errorf("stop while idle should be ignored, got %d stops", src.stops.Load())
	}

	a.handleKey(tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone))
	a.handleKey(tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone))
	if src.starts.Load() != 1 {
		t.Errorf("start while running should be ignored, got %d starts", src.starts.Load())
	}
	if a.stopBtn.IsDisabled() || !a.startBtn.IsDisabled() {
		t.Error("expected only stop to be enabled while running")
	}
}

func TestFormatStatus(t *testing.T) {
	snap := telemetry.Snapshot{
		Transport:         "poll",
		TransportState:    "active",
		SnapshotsReceived: 1500,
		RequestsCompleted: 3,
		AvgLatencyMs:      2.5,
		ClearedTotal:      2,
		ErrorsTotal:       2,
		ErrorsByContext:   map[string]uint64{"poll_request": 2},
		UptimeSeconds:     65,
	}
	got := formatStatus(snap, render.Running, 4)

	for _, want := range []string{"poll", "active", "1,500", "avg 2.5ms", "cleared 2", "xruns 4", "poll_request=2", "up 1m05s"} {
		if !strings.Contains(got, want) {
			t.Errorf("status %q missing %q", got, want)
		}
	}
	if strings.Contains(formatStatus(snap, render.Running, -1), "xruns") {
		t.Error("xruns should be hidden when the producer never sent it")
	}
}

func TestFormatStatus_EscapesCloseCause(t *testing.T) {
	snap := telemetry.Snapshot{Transport: "push", TransportState: "stopped", LastCloseCause: "[red]boom"}
	got := formatStatus(snap, render.Idle, -1)
	if !strings.Contains(got, "[[red]boom") {
		t.Errorf("expected escaped close cause, got %q", got)
	}
}
