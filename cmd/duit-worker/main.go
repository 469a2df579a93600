package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"duit/internal/amqp"
	"duit/internal/cli"
	"duit/internal/log"
	"duit/internal/mirror"
	gmirror "duit/internal/mirror/google"
	memmirror "duit/internal/mirror/memory"
	"duit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("starting duit-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick the mirror target. Without a spreadsheet id the worker still
	// drains the queue into an in-memory writer, which keeps local setups
	// working without Google credentials.
	var writer mirror.RecordWriter
	if cfg.MirrorSpreadsheetID != "" {
		client, err := gmirror.NewFromEnv(ctx)
		if err != nil {
			logger.Error("failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.MirrorSpreadsheetID)
	} else {
		writer = memmirror.New()
		logger.Info("no MIRROR_SPREADSHEET_ID set, mirroring to memory")
	}

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer events.Close()

	w := worker.NewMirrorWorker(writer, logger)

	logger.Info("consuming created events",
		log.FieldExchange, cfg.AMQPExchange,
		log.FieldQueue, cfg.AMQPQueue)

	err = events.ConsumeWithReconnect(ctx, cfg.AMQPURL, func(msg *amqp.TransactionCreatedMessage) error {
		return w.HandleCreated(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
