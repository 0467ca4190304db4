package telemetry

type Snapshot struct {
	// Core counters
	SnapshotsReceived  uint64
	RequestsCompleted  uint64
	ClearedTotal       uint64
	ClosedTotal        uint64
	DiscardedResponses uint64
	ErrorsTotal        uint64

	// Stream state
	Transport      string
	TransportState string
	LastChannels   int
	LastCloseCause string

	// Rate metrics
	SnapshotsPerSecond float64

	// Latency metrics
	AvgLatencyMs float64
	P95LatencyMs float64

	// System metrics
	UptimeSeconds      float64
	ChannelUtilization float64

	// Error breakdown
	ErrorsByContext  map[string]uint64
	ErrorsBySeverity map[ErrorSeverity]uint64
	RecentErrors     []string
}

type TelemetryReader interface {
	Snapshot() Snapshot
}
