package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"parishledger/internal/amqp"
	"parishledger/internal/cache"
	"parishledger/internal/cli"
	"parishledger/internal/config"
	apphttp "parishledger/internal/http"
	applog "parishledger/internal/log"
	"parishledger/internal/middleware/ratelimit"
	"parishledger/internal/services"
	"parishledger/internal/worker"
)

func main() {
	cfg, logger := cli.MustConfig(applog.ComponentApp)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	views := cache.NewLRUCache[services.Dashboard](cfg.ViewCacheSize, cfg.ViewCacheTTL)
	janitor := cache.NewJanitor(logger)
	janitor.Register(views)

	opts := services.Options{
		ChurchName:     cfg.ChurchName,
		IncomePriority: cfg.IncomePriority,
		Location:       cfg.Location(),
		Views:          views,
		Logger:         logger,
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
		} else {
			defer client.Close()
			opts.Publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewLedgerService(res.Store, opts)

	srvOpts := apphttp.Options{
		AdminPassword: cfg.AdminPassword,
		RateLimit:     ratelimit.DefaultConfig(),
		Logger:        logger,
	}
	sheetsClient, err := cli.OpenSheets(ctx, cfg)
	if err != nil {
		return err
	}
	var exporter *worker.ExportWorker
	if sheetsClient != nil {
		srvOpts.Sheets = sheetsClient
		exporter = worker.NewExportWorker(sheetsClient, sheetsClient.SheetTitle, cfg.Location(), logger)
	}
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is empty, protected endpoints are open")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, srvOpts)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"church", cfg.ChurchName)
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
	g.Go(func() error {
		return janitor.Run(gctx, cfg.ViewCacheTTL)
	})
	if exporter != nil && cfg.ExportInterval > 0 {
		g.Go(func() error {
			return exporter.RunPeriodic(gctx, res.Store, cfg.ExportInterval)
		})
	}
	return g.Wait()
}
