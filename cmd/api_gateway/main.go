package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/doorstep-banking/internal/api_gateway"
	"github.com/doorstep-banking/internal/bootstrap"
	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/doorstep-banking/internal/logger"
	"github.com/doorstep-banking/internal/platform/messaging/producers"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting API Gateway",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	infra, err := bootstrap.Open(appCtx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize infrastructure", "error", err)
		os.Exit(1)
	}

	// Lifecycle events are published after commit; the sync processor consumes them
	eventProducer, err := producers.NewServiceEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize service event producer", "error", err)
		_ = infra.Close(appCtx)
		os.Exit(1)
	}

	svcs := lifecycle.CreateServices(infra.Dependencies(cfg, eventProducer), log, cfg)

	server := api_gateway.NewServer(log, cfg, svcs.Requests, svcs.Agents, svcs.Repair,
		map[string]api_gateway.HealthChecker{
			"mongodb":  infra.Mongo,
			"postgres": infra.Postgres,
		},
	)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores go away
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing service event producer", "error", err)
		shutdownErr = err
	}

	if err := infra.Close(shutdownCtx); err != nil {
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
