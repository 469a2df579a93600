package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"duit/internal/amqp"
	"duit/internal/backend"
	"duit/internal/cli"
	apphttp "duit/internal/http"
	"duit/internal/log"
	"duit/internal/services"
	"duit/internal/session"
	"duit/internal/views"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res, err := backend.Open(*cfg, logger)
	if err != nil {
		logger.Error("failed to open ledger backend", log.FieldError, err, log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("ledger cleanup failed", log.FieldError, err)
			}
		}
	}()

	// Created events feed the mirror worker. Publishing is optional and
	// best effort; the ledger append never depends on the broker.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("failed to initialize AMQP client, continuing without events", log.FieldError, err)
			events = nil
		} else {
			defer events.Close()
			logger.Info("AMQP client initialized",
				log.FieldExchange, cfg.AMQPExchange,
				log.FieldQueue, cfg.AMQPQueue)
		}
	}

	sess := session.New()

	totals := views.NewTotals(res.Store, sess, logger)
	recent := views.NewRecentFeed(res.Store, sess, cfg.RecentLimit, logger)
	month := views.NewMonthWindow(res.Store, sess, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, v := range []interface {
		Start(context.Context) error
	}{totals, recent, month} {
		if err := v.Start(ctx); err != nil {
			logger.Error("failed to start view", log.FieldError, err)
			os.Exit(1)
		}
	}
	defer func() {
		totals.Stop()
		recent.Stop()
		month.Stop()
	}()

	// Report the restored identity, if any. Views pick up the owner through
	// their session listeners.
	sess.Resolve(cfg.InitialOwnerID)

	intake := services.NewIntake(res.Store, sess, events, logger)
	srv := apphttp.NewServer(":"+cfg.Port, sess, intake, totals, recent, month, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting duit server", "port", cfg.Port, log.FieldBackend, cfg.LedgerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
