package source

import (
	"time"

	"peakmeter/pkg/telemetry"
)

// TelemetrySink is a thin adapter for emitting structured telemetry.
type TelemetrySink interface {
	EmitSnapshot(transport string, channels int)
	EmitRequest(status int, latency time.Duration)
	EmitCleared(channels int)
	EmitClosed(reason string)
	EmitDiscarded(transport string)
	EmitState(transport string, state TransportState)
	EmitError(err error, where string, severity telemetry.ErrorSeverity)
}

type telemetrySinkImpl struct {
	pub telemetry.TelemetryPublisher
}

// NewTelemetrySink wraps pub; a nil publisher drops everything.
func NewTelemetrySink(pub telemetry.TelemetryPublisher) TelemetrySink {
	if pub == nil {
		pub = telemetry.NewNoopPublisher()
	}
	return &telemetrySinkImpl{pub: pub}
}

func (t *telemetrySinkImpl) EmitSnapshot(transport string, channels int) {
	t.pub.Publish(telemetry.NewSnapshotReceived(transport, channels))
}

func (t *telemetrySinkImpl) EmitRequest(status int, latency time.Duration) {
	t.pub.Publish(telemetry.NewRequestCompleted(status, latency))
}

func (t *telemetrySinkImpl) EmitCleared(channels int) {
	t.pub.Publish(telemetry.NewStreamCleared(channels))
}

func (t *telemetrySinkImpl) EmitClosed(reason string) {
	t.pub.Publish(telemetry.NewStreamClosed(reason))
}

func (t *telemetrySinkImpl) EmitDiscarded(transport string) {
	t.pub.Publish(telemetry.NewResponseDiscarded(transport))
}

func (t *telemetrySinkImpl) EmitState(transport string, state TransportState) {
	t.pub.Publish(telemetry.NewTransportStateChanged(transport, state.String()))
}

func (t *telemetrySinkImpl) EmitError(err error, where string, severity telemetry.ErrorSeverity) {
	t.pub.Publish(telemetry.NewSourceError(err, where, severity))
}
