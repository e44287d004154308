package main

import (
	"context"
	"os"
	"time"

	"famspese/internal/backend"
	"famspese/internal/cli"
	applog "famspese/internal/log"
	"famspese/internal/metrics"
	"famspese/internal/services"
	"famspese/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(true)
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting famspese-worker")

	store, err := cli.InitStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	integrations, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid integration configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	result, err := factory.CreateExporter(context.Background(), integrations)
	if err != nil {
		logger.Error("Failed to initialize payment exporter", "error", err)
		os.Exit(1)
	}

	var consumer worker.Consumer
	client, err := factory.CreateEvents(integrations)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	if client != nil {
		defer client.Close()
		consumer = client
	}

	m := metrics.New()
	installments := worker.NewInstallmentWorker(store, services.NewInstallmentProcessor(store, m))
	exports := worker.NewExportWorker(store, result.Exporter, m, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	err = worker.Run(ctx, consumer, installments, exports, worker.Options{
		Routes:              integrations.Routes,
		SyncInterval:        cfg.SyncInterval,
		InstallmentInterval: cfg.InstallmentInterval,
	})
	if err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
