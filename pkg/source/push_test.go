package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"peakmeter/pkg/config"
	"peakmeter/pkg/testutil"
)

// newWSServer runs serve for every accepted websocket connection.
func newWSServer(t *testing.T, serve func(ctx context.Context, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		serve(r.Context(), c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain reads until the peer goes away.
func drain(ctx context.Context, c *websocket.Conn) {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
	}
}

func newTestPushSource(t *testing.T, endpoint string, h Handler, pub *testutil.CapturingPublisher) *PushSource {
	t.Helper()
	if pub == nil {
		pub = testutil.NewCapturingPublisher()
	}
	src, err := NewPushSource(PushOptions{URL: endpoint, DialTimeout: time.Second}, h, NewTelemetrySink(pub), createTestLogger())
	if err != nil {
		t.Fatalf("failed to create push source: %v", err)
	}
	t.Cleanup(src.Stop)
	return src
}

func TestPushSource_MalformedFrameDropped(t *testing.T) {
	endpoint := newWSServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`not-json`))
		c.Write(ctx, websocket.MessageText, []byte("{\"cnt\":1,\"peak\":[3]}\r\n"))
		drain(ctx, c)
	})

	h := testutil.NewRecordingHandler()
	pub := testutil.NewCapturingPublisher()
	src := newTestPushSource(t, endpoint, h, pub)
	src.Start(context.Background())

	if !testutil.WaitFor(time.Second, func() bool { n, _, _ := h.Counts(); return n == 1 }) {
		t.Fatal("expected the valid frame to be delivered")
	}
	time.Sleep(20 * time.Millisecond)

	n, cleared, closed := h.Counts()
	if n != 1 || cleared != 0 || closed != 0 {
		t.Errorf("expected 1/0/0 callbacks, got %d/%d/%d", n, cleared, closed)
	}
	snap, _ := h.LastSnapshot()
	if snap.Peak[0] != 3 {
		t.Errorf("unexpected snapshot %#v", snap)
	}
	if src.State() != StateActive {
		t.Errorf("expected active after malformed frame, got %s", src.State())
	}
	if pub.Count("source_error") != 1 {
		t.Errorf("expected one parse error event, got %d", pub.Count("source_error"))
	}
}

func TestPushSource_ServerCloseEmitsClosedOnce(t *testing.T) {
	endpoint := newWSServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"cnt":2,"peak":[1,2],"max":[3,4]}`))
		c.Close(websocket.StatusNormalClosure, "bye")
	})

	h := testutil.NewRecordingHandler()
	pub := testutil.NewCapturingPublisher()
	src := newTestPushSource(t, endpoint, h, pub)
	src.Start(context.Background())

	if !testutil.WaitFor(time.Second, func() bool { _, _, c := h.Counts(); return c >= 1 }) {
		t.Fatal("expected closed callback")
	}
	time.Sleep(50 * time.Millisecond)

	if _, _, closed := h.Counts(); closed != 1 {
		t.Errorf("expected exactly one closed callback, got %d", closed)
	}
	if src.State() != StateStopped {
		t.Errorf("expected stopped after server close, got %s", src.State())
	}
	if websocket.CloseStatus(h.ClosedErrors()[0]) != websocket.StatusNormalClosure {
		t.Errorf("expected normal closure status, got %v", h.ClosedErrors()[0])
	}
	if pub.Count("stream_closed") != 1 {
		t.Errorf("expected one stream_closed event, got %d", pub.Count("stream_closed"))
	}

	src.Stop()
	if _, _, closed := h.Counts(); closed != 1 {
		t.Errorf("stop after closure must not emit again, got %d", closed)
	}
}

func TestPushSource_StopEmitsNothing(t *testing.T) {
	connected := make(chan struct{}, 1)
	endpoint := newWSServer(t, func(ctx context.Context, c *websocket.Conn) {
		connected <- struct{}{}
		drain(ctx, c)
	})

	h := testutil.NewRecordingHandler()
	src := newTestPushSource(t, endpoint, h, nil)
	src.Start(context.Background())

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("server never saw a connection")
	}

	src.Stop()
	time.Sleep(50 * time.Millisecond)

	if n, c, closed := h.Counts(); n != 0 || c != 0 || closed != 0 {
		t.Errorf("expected no callbacks, got %d/%d/%d", n, c, closed)
	}
	if src.State() != StateStopped {
		t.Errorf("expected stopped, got %s", src.State())
	}
}

func TestPushSource_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	h := testutil.NewRecordingHandler()
	src := newTestPushSource(t, endpoint, h, nil)
	src.Start(context.Background())

	if !testutil.WaitFor(time.Second, func() bool { _, _, c := h.Counts(); return c == 1 }) {
		t.Fatal("expected closed callback for failed dial")
	}
	var terr *TransportError
	if !errors.As(h.ClosedErrors()[0], &terr) || terr.Op != "dial" {
		t.Errorf("expected dial TransportError, got %v", h.ClosedErrors()[0])
	}
}

func TestPushSource_RestartAfterClose(t *testing.T) {
	endpoint := newWSServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"cnt":1,"peak":[7]}`))
		c.Close(websocket.StatusGoingAway, "")
	})

	h := testutil.NewRecordingHandler()
	src := newTestPushSource(t, endpoint, h, nil)

	src.Start(context.Background())
	if !testutil.WaitFor(time.Second, func() bool { _, _, c := h.Counts(); return c == 1 }) {
		t.Fatal("expected first closure")
	}
	src.Start(context.Background())
	if !testutil.WaitFor(time.Second, func() bool { _, _, c := h.Counts(); return c == 2 }) {
		t.Fatal("expected second run to close independently")
	}
	if n, _, _ := h.Counts(); n != 2 {
		t.Errorf("expected one snapshot per run, got %d", n)
	}
}

func TestNew_SelectsTransport(t *testing.T) {
	h := testutil.NewRecordingHandler()
	cfg := &config.Config{
		EndpointURL: "http://localhost:8080/meterpeak",
		Transport:   config.TransportPoll,
		Network: config.NetworkConfig{
			PollIntervalMs:   100,
			RetryDelayMs:     100,
			RequestTimeoutMs: 1000,
			DialTimeoutMs:    1000,
		},
	}

	src, err := New(cfg, h, nil, createTestLogger())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if _, ok := src.(*PollSource); !ok || src.Transport() != config.TransportPoll {
		t.Errorf("expected poll source, got %T", src)
	}

	cfg.Transport = config.TransportPush
	cfg.EndpointURL = "ws://localhost:8080/meterpeak"
	src, err = New(cfg, h, nil, createTestLogger())
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, ok := src.(*PushSource); !ok || src.Transport() != config.TransportPush {
		t.Errorf("expected push source, got %T", src)
	}

	cfg.Transport = "carrier-pigeon"
	if _, err := New(cfg, h, nil, createTestLogger()); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(cfg, nil, nil, createTestLogger()); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil handler, got %v", err)
	}
}

func TestPushSource_ParentCancelStops(t *testing.T) {
	endpoint := newWSServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"cnt":1,"peak":[1]}`))
		drain(ctx, c)
	})

	h := testutil.NewRecordingHandler()
	src := newTestPushSource(t, endpoint, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	src.Start(ctx)
	if !testutil.WaitFor(time.Second, func() bool { n, _, _ := h.Counts(); return n == 1 }) {
		t.Fatal("expected a snapshot")
	}
	cancel()

	if !testutil.WaitFor(time.Second, func() bool { return src.State() == StateStopped }) {
		t.Fatalf("expected stopped after parent cancel, got %s", src.State())
	}
	if _, _, closed := h.Counts(); closed != 0 {
		t.Errorf("parent cancel is not a transport closure, got %d closed", closed)
	}

	src.Start(context.Background())
	if !testutil.WaitFor(time.Second, func() bool { n, _, _ := h.Counts(); return n == 2 }) {
		t.Fatal("expected Start to reconnect after parent cancel")
	}
}
