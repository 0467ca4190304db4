// Package monitor ties a data source to a renderer and drives both from user
// start and stop actions.
package monitor

import (
	"context"
	"fmt"
	"log"

	"peakmeter/pkg/render"
	"peakmeter/pkg/source"
)

type Monitor struct {
	src      source.DataSource
	renderer *render.Renderer
	logger   *log.Logger
}

// New returns a Monitor. src must have been created with renderer as its
// handler so that transport closure reaches the renderer.
func New(src source.DataSource, renderer *render.Renderer, logger *log.Logger) *Monitor {
	return &Monitor{src: src, renderer: renderer, logger: logger}
}

// Start begins metering. It is a no-op while already running.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.renderer.Start() {
		return nil
	}
	if err := m.src.Start(ctx); err != nil {
		m.renderer.Stop()
		return fmt.Errorf("failed to start %s source: %w", m.src.Transport(), err)
	}
	m.logger.Printf("metering started (%s)", m.src.Transport())
	return nil
}

// Stop halts the source first so no late data reaches the renderer, then
// returns the display to idle.
func (m *Monitor) Stop() {
	if m.renderer.State() != render.Running {
		m.src.Stop()
		return
	}
	m.src.Stop()
	m.renderer.Stop()
	m.logger.Printf("metering stopped")
}

// Toggle starts when idle and stops when running.
func (m *Monitor) Toggle(ctx context.Context) error {
	if m.renderer.State() == render.Running {
		m.Stop()
		return nil
	}
	return m.Start(ctx)
}

func (m *Monitor) Renderer() *render.Renderer { return m.renderer }

func (m *Monitor) Source() source.DataSource { return m.src }
