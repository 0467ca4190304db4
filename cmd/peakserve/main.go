package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"peakmeter/pkg/config"
	"peakmeter/pkg/relay"
	"peakmeter/pkg/version"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.Line("peakserve"))
		return
	}

	_ = godotenv.Load()

	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	logger := log.New(os.Stderr, "[peakserve] ", log.LstdFlags)
	if err := run(cfg, logger); err != nil {
		logger.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := relay.NewFileStore(cfg.PeaksFile, cfg.DefaultChannels)
	hub := relay.NewHub(relay.DefaultQueueSize, logger)
	server := relay.NewServer(cfg, store, hub, logger)
	watcher := relay.NewWatcher(store, hub, cfg.PushInterval(), logger)

	go watcher.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
