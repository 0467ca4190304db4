package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"peakmeter/pkg/config"
	"peakmeter/pkg/meter"
	"peakmeter/pkg/telemetry"
)

type PushOptions struct {
	URL         string
	DialTimeout time.Duration
	Dial        *websocket.DialOptions
}

// PushSource keeps a websocket open and emits a snapshot for every valid
// inbound frame. Malformed frames are dropped; the stream ends with a single
// OnClosed when the connection fails or the server closes it.
type PushSource struct {
	endpoint    string
	dialTimeout time.Duration
	dialOpts    *websocket.DialOptions
	handler     Handler
	tsink       TelemetrySink
	logger      *log.Logger

	mu     sync.Mutex
	state  TransportState
	epoch  uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPushSource(opts PushOptions, handler Handler, tsink TelemetrySink, logger *log.Logger) (*PushSource, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || u.Host == "" {
		return nil, &config.UserError{Key: config.KeyEndpointURL, Reason: fmt.Sprintf("is not an absolute URL: %q", opts.URL)}
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = time.Duration(config.DefaultDialTimeoutMs) * time.Millisecond
	}
	if tsink == nil {
		tsink = NewTelemetrySink(nil)
	}

	return &PushSource{
		endpoint:    opts.URL,
		dialTimeout: opts.DialTimeout,
		dialOpts:    opts.Dial,
		handler:     handler,
		tsink:       tsink,
		logger:      logger,
	}, nil
}

func (s *PushSource) Transport() string { return config.TransportPush }

func (s *PushSource) State() TransportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the connection in the background. It is a no-op while already
// running.
func (s *PushSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.running() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.epoch++
	s.cancel = cancel
	s.setStateLocked(StateConnecting)

	prev := s.done
	s.done = make(chan struct{})
	go s.run(runCtx, s.epoch, prev, s.done)
	return nil
}

// Stop closes the connection. Nothing is delivered after it returns, including
// OnClosed. Safe to call repeatedly.
func (s *PushSource) Stop() {
	s.mu.Lock()
	if !s.state.running() {
		s.mu.Unlock()
		return
	}
	s.epoch++
	cancel := s.cancel
	s.cancel = nil
	s.setStateLocked(StateStopped)
	s.mu.Unlock()

	cancel()
	s.logger.Printf("push stream stopped")
}

// run holds one connection. It starts only after the previous run has
// returned.
func (s *PushSource) run(ctx context.Context, epoch uint64, prev, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	defer s.finish(epoch)

	dialCtx, cancelDial := context.WithTimeout(ctx, s.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, s.endpoint, s.dialOpts)
	cancelDial()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.terminate(epoch, &TransportError{Op: "dial", URL: s.endpoint, Err: err})
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxSnapshotBytes)

	if !s.activate(epoch) {
		_ = conn.Close(websocket.StatusNormalClosure, "client stopped")
		return
	}
	s.logger.Printf("push stream connected to %s", s.endpoint)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.terminate(epoch, &TransportError{Op: "read", URL: s.endpoint, Err: err})
			return
		}
		if !s.dispatch(epoch, data) {
			return
		}
	}
}

func (s *PushSource) activate(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.setStateLocked(StateActive)
	return true
}

// dispatch decodes one frame. It returns false when the run has been stopped.
func (s *PushSource) dispatch(epoch uint64, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		s.tsink.EmitDiscarded(config.TransportPush)
		return false
	}

	snap, err := meter.Decode(data)
	if err != nil {
		s.logger.Printf("dropping malformed frame: %v", err)
		s.tsink.EmitError(err, "parse", telemetry.ErrorSeverityWarning)
		return true
	}

	s.tsink.EmitSnapshot(config.TransportPush, snap.ChannelCount)
	s.handler.OnSnapshot(snap)
	return true
}

// terminate emits the closed event once per run.
func (s *PushSource) terminate(epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.setStateLocked(StateStopped)

	reason := closeReason(err)
	s.logger.Printf("push stream closed: %s", reason)
	s.tsink.EmitError(err, "push_"+opOf(err), telemetry.ErrorSeverityWarning)
	s.tsink.EmitClosed(reason)
	s.handler.OnClosed(err)
}

// finish marks a run that ended without Stop or a transport failure, e.g.
// because the parent context was cancelled, as stopped.
func (s *PushSource) finish(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.setStateLocked(StateStopped)
	s.logger.Printf("push stream ended")
}

func (s *PushSource) setStateLocked(state TransportState) {
	if s.state == state {
		return
	}
	s.state = state
	s.tsink.EmitState(config.TransportPush, state)
}

func closeReason(err error) string {
	switch status := websocket.CloseStatus(err); status {
	case -1:
		return err.Error()
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return "server closed connection"
	default:
		return fmt.Sprintf("server closed connection (%v)", status)
	}
}

func opOf(err error) string {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Op
	}
	return "transport"
}
