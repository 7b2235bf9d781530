package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/backend"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
	gsheet "financas/internal/sheets/google"
	"financas/internal/worker"
)

func main() {
	cfg, logger := cli.MustStartup()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	cache := query.New(query.Options{StaleTime: cfg.QueryStaleTime, Logger: logger})
	local := notify.LogNotifier{Logger: logger}
	deps := apphttp.Deps{
		Backend:   res.Backend,
		Cache:     cache,
		Notifier:  local,
		Logger:    logger,
		RateLimit: cfg.RateLimitPerMinute,
	}

	var bus *amqp.Bus
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			// The dashboard works without the bus; only other instances miss
			// this one's invalidations.
			logger.Warn("AMQP unavailable, running without event bus", applog.FieldError, err.Error())
		} else {
			bus = amqp.NewBus(amqpClient, amqpClient.Origin(), logger)
			deps.Invalidator = query.Fanout{cache, bus}
			deps.Notifier = notify.Multi{local, bus}
			logger.Info("Event bus enabled", "exchange", cfg.AMQPExchange)
		}
	}

	if cfg.SheetsEnabled() {
		exp, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err.Error())
			os.Exit(1)
		}
		deps.Exporter = exp
		logger.Info("Report export enabled", "sheet", cfg.GoogleSheetName)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cache.Close()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err.Error())
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err.Error())
			}
		}
	})

	if bus != nil {
		w := worker.NewEventWorker(amqpClient, bus.Handler(cache, local), cache, cfg.ResyncInterval, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("Event worker stopped", applog.FieldError, err.Error())
			}
		}()
	}

	logger.Info("Starting financas server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
