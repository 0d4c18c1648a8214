package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Keratosis/Budget-tracker-application/internal/amqp"
	"github.com/Keratosis/Budget-tracker-application/internal/auth"
	"github.com/Keratosis/Budget-tracker-application/internal/cli"
	"github.com/Keratosis/Budget-tracker-application/internal/ledger"
	"github.com/Keratosis/Budget-tracker-application/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.DBPath)
	defer repo.Close()

	// Event publishing is optional; without a broker the tracker is a
	// purely local tool.
	var events ledger.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := ledger.NewService(repo, auth.NewHasher(cfg.BcryptCost), auth.NewSessions(), events)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(svc, cfg, os.Stdin, os.Stdout)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", "error", err)
		os.Exit(1)
	}
}
