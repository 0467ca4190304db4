package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"peakmeter/pkg/config"
	"peakmeter/pkg/monitor"
	"peakmeter/pkg/render"
	"peakmeter/pkg/source"
	"peakmeter/pkg/telemetry"
	"peakmeter/pkg/tui"
	"peakmeter/pkg/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.Line("peakmon"))
		return
	}

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog := newLogger(cfg.Quiet)
	defer closeLog()

	agg := telemetry.NewAggregator(telemetry.RealClock{}, telemetry.DefaultConfig())
	agg.Start(ctx)
	defer agg.Stop()

	renderer, err := render.New(cfg.Display.ChannelCount, cfg.Display.MaxChannels)
	if err != nil {
		return err
	}
	src, err := source.New(cfg, renderer, agg, logger)
	if err != nil {
		return err
	}
	mon := monitor.New(src, renderer, logger)

	if cfg.Quiet {
		return NewCLI(agg, mon, cfg, logger).Run(ctx)
	}
	return tui.New(mon, agg, logger).Run(ctx)
}

// newLogger logs to stderr in quiet mode. The terminal interface owns the
// screen, so it logs to a file in the temp directory instead.
func newLogger(quiet bool) (*log.Logger, func()) {
	if quiet {
		return log.New(os.Stderr, "[peakmon] ", log.LstdFlags), func() {}
	}
	path := filepath.Join(os.TempDir(), "peakmon.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	return log.New(f, "[peakmon] ", log.LstdFlags), func() { f.Close() }
}
