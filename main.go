package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/ingestion"
	"github.com/trendingnow/trends-ingestion-service/internal/logger"
	"github.com/trendingnow/trends-ingestion-service/internal/metrics"
	"github.com/trendingnow/trends-ingestion-service/internal/server"
	"github.com/trendingnow/trends-ingestion-service/internal/storage"
	"github.com/trendingnow/trends-ingestion-service/internal/trends"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).WithError(err).Fatal("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	warehouse, err := storage.NewWarehouse(ctx, cfg.Warehouse)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize warehouse")
	}

	status, err := storage.NewStatusStore(ctx, cfg.Status)
	if err != nil {
		warehouse.Close()
		log.WithError(err).Fatal("failed to initialize status store")
	}

	m := metrics.New()
	ingestor := ingestion.NewService(cfg.Ingestion, trends.NewClient(cfg.Trends), warehouse, status, m, log)

	log.WithFields(map[string]interface{}{
		"run_mode":  cfg.RunMode,
		"warehouse": cfg.Warehouse.Type,
		"status":    cfg.Status.Type,
		"geo":       cfg.Trends.Geo,
	}).Info("starting trends ingestion")

	if cfg.RunMode == config.RunModeDaemon {
		runDaemon(ctx, cancel, cfg, ingestor, warehouse, status, m, log)
	} else {
		err = runOnce(ctx, cfg, ingestor, m, log)
	}

	closeAll(log, warehouse, status)

	if err != nil {
		log.WithError(err).Fatal("ingestion failed")
	}
}

// runOnce performs a single ingestion and optionally pushes its metrics
func runOnce(ctx context.Context, cfg *config.Config, ingestor *ingestion.Service, m *metrics.Metrics, log *logger.Logger) error {
	_, runErr := ingestor.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := m.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName); err != nil {
			log.WithError(err).Warn("failed to push metrics")
		}
	}

	return runErr
}

// runDaemon serves the HTTP API and ingests on every interval until a
// shutdown signal arrives
func runDaemon(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, ingestor *ingestion.Service,
	warehouse storage.Warehouse, status storage.StatusStore, m *metrics.Metrics, log *logger.Logger) {
	httpServer := server.NewServer(cfg.Server, warehouse, status, ingestor.CurrentTable, m.Handler(), log)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting HTTP server")
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Start ingestion service
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("starting ingestion scheduler")
		if err := ingestor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("ingestion service error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received, gracefully shutting down")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	cancel() // Cancel ingestion context
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("ingestion did not stop before shutdown timeout")
	}

	log.Info("shutdown complete")
}

func closeAll(log *logger.Logger, warehouse storage.Warehouse, status storage.StatusStore) {
	if err := warehouse.Close(); err != nil {
		log.WithError(err).Warn("failed to close warehouse")
	}
	if err := status.Close(); err != nil {
		log.WithError(err).Warn("failed to close status store")
	}
}
