package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"taichinh/internal/amqp"
	"taichinh/internal/backend"
	"taichinh/internal/cli"
	applog "taichinh/internal/log"
	"taichinh/internal/source"
	"taichinh/internal/source/google"
	"taichinh/internal/source/postgres"
	"taichinh/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting taichinh-sync")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var upstream source.Reader
	switch cfg.SyncSource {
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Failed to connect to Postgres", applog.FieldError, err)
			os.Exit(1)
		}
		defer pg.Close()
		upstream = pg
	default:
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid backend configuration", applog.FieldError, err)
			os.Exit(1)
		}
		sheets, err := google.New(ctx, backendCfg.GoogleConfig(), logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		upstream = sheets
	}

	w := worker.NewImportWorker(upstream, repo, cfg.SyncBatchSize, logger)
	if _, err := w.Import(ctx, amqp.ReasonStartup); err != nil {
		// Retried on the next tick.
		logger.Error("Startup import failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		g.Go(func() error {
			return client.ConsumeSyncRequests(gctx, w.HandleSyncRequest)
		})
	} else {
		logger.Info("AMQP_URL not set, relying on periodic imports only")
	}
	g.Go(func() error {
		return w.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker shutdown complete")
}
