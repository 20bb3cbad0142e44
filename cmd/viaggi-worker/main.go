package main

import (
	"os"
	"time"

	"viaggi/internal/amqp"
	"viaggi/internal/cli"
	"viaggi/internal/log"
	"viaggi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting viaggi-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	var consumer worker.Consumer
	var client *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		client, consumer = c, c
	} else {
		logger.Info("AMQP disabled, polling the ledger only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	w := worker.NewProcessorWorker(repo, cfg.SyncBatchSize, logger)
	if n, err := w.StartupCheck(ctx); err != nil {
		logger.Error("Startup catch-up failed", log.FieldError, err)
	} else if n > 0 {
		logger.Info("Startup catch-up processed expenses", "count", n)
	}

	logger.Info("Worker running",
		"batch_size", cfg.SyncBatchSize,
		"interval", cfg.SyncInterval,
		"queue", cfg.AMQPQueue)
	runErr := w.Run(ctx, consumer, cfg.SyncInterval)

	if client != nil {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Error("Failed to close SQLite repository", log.FieldError, err)
	}
	if runErr != nil {
		logger.Error("Worker stopped with error", log.FieldError, runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
