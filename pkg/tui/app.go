// Package tui is the terminal front end: one bar per channel, start and stop
// controls and a telemetry status line.
package tui

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"peakmeter/pkg/monitor"
	"peakmeter/pkg/render"
	"peakmeter/pkg/telemetry"
)

const (
	frameInterval  = 33 * time.Millisecond
	statusInterval = time.Second
)

type App struct {
	app       *tview.Application
	meters    *MeterView
	status    *tview.TextView
	startBtn  *tview.Button
	stopBtn   *tview.Button
	monitor   *monitor.Monitor
	telemetry telemetry.TelemetryReader
	logger    *log.Logger

	ctx   context.Context
	dirty atomic.Bool
}

// New builds the interface around mon. The renderer's listener is replaced so
// that changes schedule a redraw.
func New(mon *monitor.Monitor, reader telemetry.TelemetryReader, logger *log.Logger) *App {
	a := &App{
		app:       tview.NewApplication(),
		meters:    NewMeterView(mon.Renderer()),
		status:    tview.NewTextView().SetDynamicColors(true),
		monitor:   mon,
		telemetry: reader,
		logger:    logger,
		ctx:       context.Background(),
	}

	a.startBtn = tview.NewButton("Start").SetSelectedFunc(a.start)
	a.stopBtn = tview.NewButton("Stop").SetSelectedFunc(a.stop)

	controls := tview.NewFlex().
		AddItem(a.startBtn, 9, 0, true).
		AddItem(nil, 1, 0, false).
		AddItem(a.stopBtn, 8, 0, false).
		AddItem(tview.NewTextView().SetText("  s start  x stop  space toggle  q quit"), 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.meters, 0, 1, false).
		AddItem(controls, 1, 0, true).
		AddItem(a.status, 2, 0, false)

	a.app.SetRoot(root, true).SetInputCapture(a.handleKey)
	mon.Renderer().SetListener(func(render.Change) { a.dirty.Store(true) })
	a.refreshControls()
	a.refreshStatus()
	return a
}

// SetScreen replaces the terminal, mainly for tests.
func (a *App) SetScreen(screen tcell.Screen) {
	a.app.SetScreen(screen)
}

// Run starts metering and blocks until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	defer a.monitor.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.redrawLoop(loopCtx)
	go func() {
		<-loopCtx.Done()
		a.app.Stop()
	}()

	a.logger.Printf("terminal interface started")
	return a.app.Run()
}

// redrawLoop coalesces renderer changes into at most one draw per frame.
func (a *App) redrawLoop(ctx context.Context) {
	frames := time.NewTicker(frameInterval)
	defer frames.Stop()
	status := time.NewTicker(statusInterval)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-status.C:
			a.app.QueueUpdateDraw(a.refreshStatus)
		case <-frames.C:
			if a.dirty.Swap(false) {
				a.app.QueueUpdateDraw(func() {
					a.refreshControls()
					a.refreshStatus()
				})
			}
		}
	}
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.app.Stop()
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch event.Rune() {
	case 's':
		if a.monitor.Renderer().Controls().StartEnabled {
			a.start()
		}
	case 'x':
		if a.monitor.Renderer().Controls().StopEnabled {
			a.stop()
		}
	case ' ':
		if err := a.monitor.Toggle(a.ctx); err != nil {
			a.logger.Printf("toggle failed: %v", err)
		}
		a.refreshControls()
	case 'q':
		a.app.Stop()
	default:
		return event
	}
	return nil
}

func (a *App) start() {
	if err := a.monitor.Start(a.ctx); err != nil {
		a.logger.Printf("start failed: %v", err)
	}
	a.refreshControls()
}

func (a *App) stop() {
	a.monitor.Stop()
	a.refreshControls()
}

func (a *App) refreshControls() {
	controls := a.monitor.Renderer().Controls()
	a.startBtn.SetDisabled(!controls.StartEnabled).SetLabelColor(buttonColor(controls.StartEnabled))
	a.stopBtn.SetDisabled(!controls.StopEnabled).SetLabelColor(buttonColor(controls.StopEnabled))
}

func (a *App) refreshStatus() {
	r := a.monitor.Renderer()
	a.status.SetText(formatStatus(a.telemetry.Snapshot(), r.State(), r.Xruns()))
}

func buttonColor(enabled bool) tcell.Color {
	if enabled {
		return tcell.ColorWhite
	}
	return tcell.ColorGray
}
