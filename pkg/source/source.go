package source

import (
	"context"
	"fmt"
	"log"

	"peakmeter/pkg/config"
	"peakmeter/pkg/meter"
	"peakmeter/pkg/telemetry"
)

// TransportState is the lifecycle of a data source.
type TransportState int

const (
	StateIdle TransportState = iota
	StateConnecting
	StateActive
	StateStopped
)

func (s TransportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("TransportState(%d)", int(s))
	}
}

func (s TransportState) running() bool {
	return s == StateConnecting || s == StateActive
}

// Handler receives the stream produced by a DataSource. Calls for one source
// are serialized and never happen after Stop returns. A Handler must not call
// Stop on the same source from inside a callback.
type Handler interface {
	OnSnapshot(s meter.Snapshot)
	// OnCleared delivers an all-zero snapshot after a failed poll.
	OnCleared(s meter.Snapshot)
	// OnClosed fires once when the transport terminates on its own.
	OnClosed(err error)
}

// DataSource produces meter snapshots while started.
type DataSource interface {
	Start(ctx context.Context) error
	Stop()
	State() TransportState
	Transport() string
}

// New builds the DataSource selected by cfg.Transport.
func New(cfg *config.Config, handler Handler, pub telemetry.TelemetryPublisher, logger *log.Logger) (DataSource, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", config.ErrInvalidConfig)
	}
	sink := NewTelemetrySink(pub)

	switch cfg.Transport {
	case config.TransportPoll:
		return NewPollSource(PollOptions{
			URL:            cfg.EndpointURL,
			Interval:       cfg.Network.PollInterval(),
			RetryDelay:     cfg.Network.RetryDelay(),
			RequestTimeout: cfg.Network.RequestTimeout(),
		}, handler, sink, logger)
	case config.TransportPush:
		return NewPushSource(PushOptions{
			URL:         cfg.EndpointURL,
			DialTimeout: cfg.Network.DialTimeout(),
		}, handler, sink, logger)
	default:
		return nil, &config.UserError{Key: config.KeyTransport, Reason: fmt.Sprintf("unknown transport %q", cfg.Transport)}
	}
}
