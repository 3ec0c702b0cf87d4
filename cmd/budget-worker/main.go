package main

import (
	"os"

	"moneymanager/internal/amqp"
	"moneymanager/internal/cli"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
	"moneymanager/internal/worker"
)

func main() {
	_ = cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting budget-worker")

	if !cfg.EventsViaBroker() {
		logger.Error("AMQP_URL is required for the budget worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Error("The budget worker records into SQLite; set DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	w := worker.NewEventWorker(services.NewActivityService(repo, repo))
	logger.Info("Consuming budget events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	runErr := w.Run(ctx, client)

	handled, failed := w.Stats()
	logger.Info("Budget worker stopped", "handled", handled, "failed", failed)
	if runErr != nil {
		logger.Error("Event consumption failed", "error", runErr)
		os.Exit(1)
	}
}
