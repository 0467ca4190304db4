package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock interface allows for deterministic testing
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Config for telemetry settings
type Config struct {
	BufferSize        int
	MaxRecentErrors   int
	RateWindowSeconds int
	LatencySamples    int
}

func DefaultConfig() Config {
	return Config{
		BufferSize:        1000,
		MaxRecentErrors:   20,
		RateWindowSeconds: 5,
		LatencySamples:    100,
	}
}

// Aggregator is the core stateful component that processes telemetry events
type Aggregator struct {
	mu    sync.RWMutex
	clock Clock
	cfg   Config

	snapshotsReceived  uint64
	requestsCompleted  uint64
	clearedTotal       uint64
	closedTotal        uint64
	discardedResponses uint64
	errorsTotal        uint64

	errorsByContext  map[string]uint64
	errorsBySeverity map[ErrorSeverity]uint64

	snapshotTimes []time.Time

	transport      string
	transportState string
	lastChannels   int
	lastCloseCause string

	// Recent errors (ring buffer)
	recentErrors []string
	errorIndex   int

	latencies    []time.Duration
	latencyIndex int

	eventCh chan TelemetryEvent
	done    chan struct{}
	wg      sync.WaitGroup

	startTime time.Time
}

// NewAggregator creates a new telemetry aggregator
func NewAggregator(clock Clock, cfg Config) *Aggregator {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.MaxRecentErrors <= 0 {
		cfg.MaxRecentErrors = 1
	}
	if cfg.LatencySamples <= 0 {
		cfg.LatencySamples = 1
	}
	if cfg.RateWindowSeconds <= 0 {
		cfg.RateWindowSeconds = 1
	}

	return &Aggregator{
		clock:            clock,
		cfg:              cfg,
		transportState:   "idle",
		errorsByContext:  make(map[string]uint64),
		errorsBySeverity: make(map[ErrorSeverity]uint64),
		snapshotTimes:    make([]time.Time, 0, cfg.RateWindowSeconds*10),
		recentErrors:     make([]string, cfg.MaxRecentErrors),
		latencies:        make([]time.Duration, cfg.LatencySamples),
		eventCh:          make(chan TelemetryEvent, cfg.BufferSize),
		done:             make(chan struct{}),
		startTime:        clock.Now(),
	}
}

// Start begins processing telemetry events
func (a *Aggregator) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.processEvents(ctx)
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
	a.wg.Wait()
}

// Publish implements TelemetryPublisher interface
func (a *Aggregator) Publish(event TelemetryEvent) {
	select {
	case a.eventCh <- event:
	default:
		// drop rather than block the stream
	}
}

// Snapshot implements TelemetryReader interface
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.clock.Now()
	avgLatency, p95Latency := a.calculateLatencyMetrics()

	errorsByContext := make(map[string]uint64, len(a.errorsByContext))
	for k, v := range a.errorsByContext {
		errorsByContext[k] = v
	}
	errorsBySeverity := make(map[ErrorSeverity]uint64, len(a.errorsBySeverity))
	for k, v := range a.errorsBySeverity {
		errorsBySeverity[k] = v
	}

	// newest first
	recentErrors := make([]string, 0)
	for i := 0; i < len(a.recentErrors); i++ {
		idx := (a.errorIndex - i - 1 + len(a.recentErrors)) % len(a.recentErrors)
		if a.recentErrors[idx] != "" {
			recentErrors = append(recentErrors, a.recentErrors[idx])
		}
	}

	return Snapshot{
		SnapshotsReceived:  a.snapshotsReceived,
		RequestsCompleted:  a.requestsCompleted,
		ClearedTotal:       a.clearedTotal,
		ClosedTotal:        a.closedTotal,
		DiscardedResponses: a.discardedResponses,
		ErrorsTotal:        a.errorsTotal,
		Transport:          a.transport,
		TransportState:     a.transportState,
		LastChannels:       a.lastChannels,
		LastCloseCause:     a.lastCloseCause,
		SnapshotsPerSecond: a.calculateRate(a.snapshotTimes, now),
		AvgLatencyMs:       avgLatency,
		P95LatencyMs:       p95Latency,
		UptimeSeconds:      now.Sub(a.startTime).Seconds(),
		ChannelUtilization: float64(len(a.eventCh)) / float64(cap(a.eventCh)) * 100,
		ErrorsByContext:    errorsByContext,
		ErrorsBySeverity:   errorsBySeverity,
		RecentErrors:       recentErrors,
	}
}

func (a *Aggregator) processEvents(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case event := <-a.eventCh:
			a.handleEvent(event)
		}
	}
}

func (a *Aggregator) handleEvent(event TelemetryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()

	switch e := event.(type) {
	case SnapshotReceived:
		a.snapshotsReceived++
		a.lastChannels = e.Channels
		a.addSnapshotTime(now)

	case RequestCompleted:
		a.requestsCompleted++
		a.addLatency(e.Latency)

	case StreamCleared:
		a.clearedTotal++

	case StreamClosed:
		a.closedTotal++
		a.lastCloseCause = e.Reason

	case ResponseDiscarded:
		a.discardedResponses++

	case TransportStateChanged:
		a.transport = e.Transport
		a.transportState = e.State

	case SourceError:
		a.errorsTotal++
		a.errorsByContext[e.Context]++
		a.errorsBySeverity[e.Severity]++
		if e.Err != nil {
			a.addRecentError(e.Context + ": " + e.Err.Error())
		} else {
			a.addRecentError(e.Context)
		}
	}
}

func (a *Aggregator) addSnapshotTime(t time.Time) {
	cutoff := t.Add(-time.Duration(a.cfg.RateWindowSeconds) * time.Second)

	for len(a.snapshotTimes) > 0 && a.snapshotTimes[0].Before(cutoff) {
		a.snapshotTimes = a.snapshotTimes[1:]
	}

	a.snapshotTimes = append(a.snapshotTimes, t)
}

func (a *Aggregator) addLatency(latency time.Duration) {
	a.latencies[a.latencyIndex] = latency
	a.latencyIndex = (a.latencyIndex + 1) % len(a.latencies)
}

func (a *Aggregator) addRecentError(err string) {
	a.recentErrors[a.errorIndex] = err
	a.errorIndex = (a.errorIndex + 1) % len(a.recentErrors)
}

func (a *Aggregator) calculateRate(times []time.Time, now time.Time) float64 {
	if len(times) == 0 {
		return 0.0
	}

	cutoff := now.Add(-time.Duration(a.cfg.RateWindowSeconds) * time.Second)
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}

	return float64(count) / float64(a.cfg.RateWindowSeconds)
}

func (a *Aggregator) calculateLatencyMetrics() (float64, float64) {
	valid := make([]time.Duration, 0, len(a.latencies))
	for _, lat := range a.latencies {
		if lat > 0 {
			valid = append(valid, lat)
		}
	}
	if len(valid) == 0 {
		return 0.0, 0.0
	}

	var sum time.Duration
	for _, lat := range valid {
		sum += lat
	}
	avg := float64(sum) / float64(len(valid)) / float64(time.Millisecond)

	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })
	p95Index := int(float64(len(valid))*0.95+0.5) - 1
	if p95Index < 0 {
		p95Index = 0
	}
	if p95Index >= len(valid) {
		p95Index = len(valid) - 1
	}
	p95 := float64(valid[p95Index]) / float64(time.Millisecond)

	return avg, p95
}
