package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/Keratosis/Budget-tracker-application/internal/amqp"
	"github.com/Keratosis/Budget-tracker-application/internal/cli"
	"github.com/Keratosis/Budget-tracker-application/internal/log"
	"github.com/Keratosis/Budget-tracker-application/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	repo := cli.InitRepository(logger, cfg.DBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	archive, err := worker.NewArchive(cfg.ArchiveFile)
	if err != nil {
		logger.Error("Failed to open archive", "error", err, "path", cfg.ArchiveFile)
		os.Exit(1)
	}

	w := worker.NewArchiveWorker(repo, archive, cfg.ArchiveBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Archive worker running",
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.ArchiveBatchSize,
		"interval", cfg.ArchiveInterval.String())

	if err := w.Run(ctx, client, cfg.ArchiveInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
