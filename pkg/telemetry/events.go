package telemetry

import "time"

type TelemetryEvent interface {
	Timestamp() time.Time // When the event occurred
	EventType() string    // For categorization/filtering
}

type SnapshotReceived struct {
	timestamp time.Time
	Transport string
	Channels  int
}

func (e SnapshotReceived) Timestamp() time.Time { return e.timestamp }
func (e SnapshotReceived) EventType() string    { return "snapshot_received" }

func NewSnapshotReceived(transport string, channels int) SnapshotReceived {
	return SnapshotReceived{
		timestamp: time.Now(),
		Transport: transport,
		Channels:  channels,
	}
}

type RequestCompleted struct {
	timestamp  time.Time
	StatusCode int
	Latency    time.Duration // Time from request issue to response observed
}

func (e RequestCompleted) Timestamp() time.Time { return e.timestamp }
func (e RequestCompleted) EventType() string    { return "request_completed" }

func NewRequestCompleted(statusCode int, latency time.Duration) RequestCompleted {
	return RequestCompleted{
		timestamp:  time.Now(),
		StatusCode: statusCode,
		Latency:    latency,
	}
}

type StreamCleared struct {
	timestamp time.Time
	Channels  int
}

func (e StreamCleared) Timestamp() time.Time { return e.timestamp }
func (e StreamCleared) EventType() string    { return "stream_cleared" }

func NewStreamCleared(channels int) StreamCleared {
	return StreamCleared{timestamp: time.Now(), Channels: channels}
}

type StreamClosed struct {
	timestamp time.Time
	Reason    string
}

func (e StreamClosed) Timestamp() time.Time { return e.timestamp }
func (e StreamClosed) EventType() string    { return "stream_closed" }

func NewStreamClosed(reason string) StreamClosed {
	return StreamClosed{timestamp: time.Now(), Reason: reason}
}

// ResponseDiscarded records a response or message that arrived after stop.
type ResponseDiscarded struct {
	timestamp time.Time
	Transport string
}

func (e ResponseDiscarded) Timestamp() time.Time { return e.timestamp }
func (e ResponseDiscarded) EventType() string    { return "response_discarded" }

func NewResponseDiscarded(transport string) ResponseDiscarded {
	return ResponseDiscarded{timestamp: time.Now(), Transport: transport}
}

type TransportStateChanged struct {
	timestamp time.Time
	Transport string // "push" or "poll"
	State     string
}

func (e TransportStateChanged) Timestamp() time.Time { return e.timestamp }
func (e TransportStateChanged) EventType() string    { return "transport_state_changed" }

func NewTransportStateChanged(transport, state string) TransportStateChanged {
	return TransportStateChanged{
		timestamp: time.Now(),
		Transport: transport,
		State:     state,
	}
}

type SourceError struct {
	timestamp time.Time
	Err       error
	Context   string // e.g. "parse", "poll_request", "push_read"
	Severity  ErrorSeverity
}

func (e SourceError) Timestamp() time.Time { return e.timestamp }
func (e SourceError) EventType() string    { return "source_error" }

func NewSourceError(err error, context string, severity ErrorSeverity) SourceError {
	return SourceError{
		timestamp: time.Now(),
		Err:       err,
		Context:   context,
		Severity:  severity,
	}
}

type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

type TelemetryPublisher interface {
	// Publish sends a telemetry event to the aggregator.
	// This is a non-blocking, fire-and-forget call.
	Publish(event TelemetryEvent)
}
