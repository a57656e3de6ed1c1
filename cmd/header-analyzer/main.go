package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/di"
	"github.com/mikey/header-analyzer/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	listeners []ports.Listener,
	store ports.Store,
	geo core.GeoLocator,
) error {
	defer logger.Sync()

	// Start the listeners
	started := make([]ports.Listener, 0, len(listeners))
	for _, l := range listeners {
		if err := l.Start(); err != nil {
			logger.Error("Failed to start listener", zap.Error(err))
			stopAll(logger, started)
			closeResources(logger, store, geo)
			return err
		}
		started = append(started, l)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	stopAll(logger, started)
	closeResources(logger, store, geo)

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, listeners []ports.Listener) {
	for _, l := range listeners {
		if err := l.Stop(); err != nil {
			logger.Error("Failed to stop listener", zap.Error(err))
		}
	}
}

func closeResources(logger *zap.Logger, store ports.Store, geo core.GeoLocator) {
	// Stop the geolocation cache if needed
	if closer, ok := geo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close geolocation cache", zap.Error(err))
		}
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}
}
