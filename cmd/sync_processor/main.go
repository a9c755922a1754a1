package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/doorstep-banking/internal/bootstrap"
	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/doorstep-banking/internal/logger"
	"github.com/doorstep-banking/internal/platform/messaging/consumers"
	"github.com/doorstep-banking/internal/platform/messaging/producers"
	"github.com/doorstep-banking/internal/sync_processor/consumer"
	"github.com/doorstep-banking/internal/sync_processor/outbox_poller"
	"github.com/doorstep-banking/internal/sync_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("sync_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	infra, err := bootstrap.Open(appCtx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize infrastructure", "error", err)
		os.Exit(1)
	}

	// The processor only repairs agent state, it never publishes lifecycle events
	deps := infra.Dependencies(cfg, nil)
	svcs := lifecycle.CreateServices(deps, log, cfg)

	reconciler := service.CreateReconciler(svcs.Repair, log, cfg)

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// dlqProducer is nil when no DLQ topic is configured; PublishToDLQ is nil-safe
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		_ = infra.Close(appCtx)
		os.Exit(1)
	}

	eventHandler := consumer.NewServiceEventHandler(log, reconciler, dlqProducer)

	applier := outbox_poller.NewAgentSyncApplier(deps.Outbox, reconciler, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, deps.Outbox, applier, log)

	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.ServiceEventTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting outbox poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if pooled, ok := reconciler.(*service.WorkerPoolReconciler); ok {
		log.Info("Shutting down worker pool", "running_workers", pooled.Running())
		pooled.Shutdown()
	}

	var shutdownErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}

	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
		shutdownErr = err
	}

	if err := infra.Close(shutdownCtx); err != nil {
		shutdownErr = err
	}

	if serviceErr != nil || shutdownErr != nil {
		log.Error("Sync processor shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Sync processor shutdown completed successfully")
}
