package main

import (
	"context"
	"log"
	"time"

	"peakmeter/pkg/config"
	"peakmeter/pkg/monitor"
	"peakmeter/pkg/render"
	"peakmeter/pkg/telemetry"
	"peakmeter/pkg/utils"
)

const (
	statusInterval = 5 * time.Second
	reconnectDelay = 2 * time.Second
)

// CLI runs metering without a screen and logs status lines instead.
type CLI struct {
	telemetry telemetry.TelemetryReader
	monitor   *monitor.Monitor
	config    *config.Config
	logger    *log.Logger

	statusEvery    time.Duration
	reconnectAfter time.Duration

	// State
	lastSnapshot telemetry.Snapshot
	printed      bool
	idleSince    time.Time
}

// NewCLI creates a new quiet runner
func NewCLI(reader telemetry.TelemetryReader, mon *monitor.Monitor, cfg *config.Config, logger *log.Logger) *CLI {
	return &CLI{
		telemetry:      reader,
		monitor:        mon,
		config:         cfg,
		logger:         logger,
		statusEvery:    statusInterval,
		reconnectAfter: reconnectDelay,
	}
}

// Run starts metering and blocks until ctx is done. A stream that closes on
// its own is restarted after a short delay.
func (c *CLI) Run(ctx context.Context) error {
	c.logger.Printf("Starting %s in quiet mode", config.AppName)
	c.logger.Printf("Endpoint: %s (%s)", c.config.EndpointURL, c.config.Transport)
	c.logger.Printf("Channels: %d", c.config.Display.ChannelCount)

	if err := c.monitor.Start(ctx); err != nil {
		return err
	}
	defer c.monitor.Stop()

	ticker := time.NewTicker(c.statusEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("Shutting down...")
			return nil
		case <-ticker.C:
			c.printStatus()
			c.maybeReconnect(ctx)
		}
	}
}

func (c *CLI) maybeReconnect(ctx context.Context) {
	if c.monitor.Renderer().State() == render.Running {
		c.idleSince = time.Time{}
		return
	}
	if c.idleSince.IsZero() {
		c.idleSince = time.Now()
		return
	}
	if time.Since(c.idleSince) < c.reconnectAfter {
		return
	}
	c.idleSince = time.Time{}
	c.logger.Printf("Stream closed, reconnecting")
	if err := c.monitor.Start(ctx); err != nil {
		c.logger.Printf("ERROR: %v", err)
	}
}

// printStatus prints current telemetry status
func (c *CLI) printStatus() {
	snapshot := c.telemetry.Snapshot()

	if c.shouldPrintStatus(snapshot) {
		c.logger.Printf("Status - Snapshots: %s, rate=%.1f/s, channels=%d, cleared=%d, closed=%d, errors=%d",
			utils.FormatNumber(snapshot.SnapshotsReceived),
			snapshot.SnapshotsPerSecond,
			snapshot.LastChannels,
			snapshot.ClearedTotal,
			snapshot.ClosedTotal,
			snapshot.ErrorsTotal)

		c.logger.Printf("Transport - %s: %s", snapshot.Transport, snapshot.TransportState)

		if snapshot.RequestsCompleted > 0 {
			c.logger.Printf("Latency - avg %.1fms, p95 %.1fms", snapshot.AvgLatencyMs, snapshot.P95LatencyMs)
		}
		if snapshot.ErrorsTotal > c.lastSnapshot.ErrorsTotal {
			c.logger.Printf("Errors - %s", utils.FormatErrorBreakdown(snapshot.ErrorsByContext))
		}
	}

	c.lastSnapshot = snapshot
	c.printed = true
}

// shouldPrintStatus determines if we should print a status update
func (c *CLI) shouldPrintStatus(snapshot telemetry.Snapshot) bool {
	// Always print first status
	if !c.printed {
		return true
	}

	if snapshot.SnapshotsReceived != c.lastSnapshot.SnapshotsReceived {
		return true
	}

	if snapshot.ErrorsTotal > c.lastSnapshot.ErrorsTotal {
		return true
	}

	if snapshot.ClearedTotal != c.lastSnapshot.ClearedTotal ||
		snapshot.ClosedTotal != c.lastSnapshot.ClosedTotal {
		return true
	}

	if snapshot.TransportState != c.lastSnapshot.TransportState {
		return true
	}

	return false
}
