package main

import (
	"context"
	"os"
	"time"

	"tradecal/internal/amqp"
	"tradecal/internal/backend"
	"tradecal/internal/cli"
	"tradecal/internal/log"
	"tradecal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting tradecal-worker")

	backendCfg, err := backend.FromAppConfig(cfg, cfg.ImportSource)
	if err != nil {
		logger.Error("Invalid import source", log.FieldError, err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize import source", log.FieldError, err, log.FieldSource, cfg.ImportSource)
		os.Exit(1)
	}
	defer source.Close()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher worker.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, refresh events will not be sent")
	}

	w := worker.NewImportWorker(source.Reader, repo, publisher, cfg.ImportSource, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	logger.Info("Import worker running",
		log.FieldSource, cfg.ImportSource,
		"interval", cfg.ImportInterval.String(),
		"db_path", cfg.SQLiteDBPath)
	w.Run(ctx, cfg.ImportInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
