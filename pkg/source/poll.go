package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"peakmeter/pkg/config"
	"peakmeter/pkg/meter"
	"peakmeter/pkg/telemetry"
)

const (
	// CacheBustParam carries a value that differs on every request.
	CacheBustParam = "t"

	maxSnapshotBytes = 1 << 20
)

type PollOptions struct {
	URL            string
	Interval       time.Duration
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	Client         *http.Client
}

// PollSource requests the latest snapshot on a fixed interval. At most one
// request is outstanding at any time.
type PollSource struct {
	endpoint   *url.URL
	interval   time.Duration
	retryDelay time.Duration
	client     *http.Client
	handler    Handler
	tsink      TelemetrySink
	logger     *log.Logger

	// after waits before the next request; tests replace it to observe delays.
	after func(d time.Duration) <-chan time.Time
	now   func() time.Time

	mu        sync.Mutex
	state     TransportState
	epoch     uint64
	cancel    context.CancelFunc
	done      chan struct{}
	lastCount int
	lastStamp int64

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func NewPollSource(opts PollOptions, handler Handler, tsink TelemetrySink, logger *log.Logger) (*PollSource, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || u.Host == "" {
		return nil, &config.UserError{Key: config.KeyEndpointURL, Reason: fmt.Sprintf("is not an absolute URL: %q", opts.URL)}
	}
	if opts.Interval <= 0 {
		return nil, &config.UserError{Key: config.KeyPollIntervalMs, Reason: "must be greater than 0"}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Duration(config.DefaultRetryDelayMs) * time.Millisecond
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}
	if tsink == nil {
		tsink = NewTelemetrySink(nil)
	}

	return &PollSource{
		endpoint:   u,
		interval:   opts.Interval,
		retryDelay: opts.RetryDelay,
		client:     client,
		handler:    handler,
		tsink:      tsink,
		logger:     logger,
		after:      time.After,
		now:        time.Now,
	}, nil
}

func (s *PollSource) Transport() string { return config.TransportPoll }

func (s *PollSource) State() TransportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (s *PollSource) MaxInFlight() int { return int(s.maxInFlight.Load()) }

// Start begins polling. It is a no-op while already running.
func (s *PollSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.running() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.epoch++
	s.cancel = cancel
	s.setStateLocked(StateConnecting)
	s.logger.Printf("polling %s every %v", s.endpoint.Redacted(), s.interval)

	prev := s.done
	s.done = make(chan struct{})
	go s.run(runCtx, s.epoch, prev, s.done)
	return nil
}

// Stop halts polling. Responses still in flight are discarded. Safe to call
// repeatedly.
func (s *PollSource) Stop() {
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
	s.logger.Printf("polling stopped")
}

// run polls until its context ends. It starts only after the previous run
// has returned, so a restart never overlaps a request still being cancelled.
func (s *PollSource) run(ctx context.Context, epoch uint64, prev, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	defer s.finish(epoch)

	for ctx.Err() == nil {
		snap, err := s.fetch(ctx)
		if !s.deliver(ctx, epoch, snap, err) {
			return
		}

		delay := s.interval
		if err != nil {
			delay = s.retryDelay
		}
		select {
		case <-ctx.Done():
			return
		case <-s.after(delay):
		}
	}
}

func (s *PollSource) fetch(ctx context.Context) (meter.Snapshot, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	target := s.requestURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return meter.Snapshot{}, &TransportError{Op: "poll", URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return meter.Snapshot{}, &TransportError{Op: "poll", URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	s.tsink.EmitRequest(resp.StatusCode, time.Since(started))
	if resp.StatusCode != http.StatusOK {
		return meter.Snapshot{}, &TransportError{Op: "poll", URL: target, StatusCode: resp.StatusCode}
	}
	if err != nil {
		return meter.Snapshot{}, &TransportError{Op: "poll", URL: target, Err: err}
	}
	return meter.Decode(body)
}

// requestURL appends a strictly increasing cache-busting value.
func (s *PollSource) requestURL() string {
	s.mu.Lock()
	stamp := s.now().UnixNano()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp
	s.mu.Unlock()

	u := *s.endpoint
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatInt(stamp, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// deliver hands one poll result to the handler. It returns false when the
// result belongs to a stopped run.
func (s *PollSource) deliver(ctx context.Context, epoch uint64, snap meter.Snapshot, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		s.tsink.EmitDiscarded(config.TransportPoll)
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	if err != nil {
		var perr *meter.ParseError
		if errors.As(err, &perr) {
			s.logger.Printf("dropping malformed snapshot: %v", err)
			s.tsink.EmitError(err, "parse", telemetry.ErrorSeverityWarning)
		} else {
			s.logger.Printf("poll failed, retrying in %v: %v", s.retryDelay, err)
			s.tsink.EmitError(err, "poll_request", telemetry.ErrorSeverityError)
		}
		cleared := meter.Zero(s.lastCount, true)
		s.tsink.EmitCleared(cleared.ChannelCount)
		s.handler.OnCleared(cleared)
		return true
	}

	s.lastCount = snap.ChannelCount
	if s.state == StateConnecting {
		s.setStateLocked(StateActive)
	}
	s.tsink.EmitSnapshot(config.TransportPoll, snap.ChannelCount)
	s.handler.OnSnapshot(snap)
	return true
}

// finish marks a run that ended without Stop, e.g. because the parent
// context was cancelled, as stopped so that Start works again.
func (s *PollSource) finish(epoch uint64) {
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
	s.logger.Printf("polling ended")
}

func (s *PollSource) setStateLocked(state TransportState) {
	if s.state == state {
		return
	}
	s.state = state
	s.tsink.EmitState(config.TransportPoll, state)
}
