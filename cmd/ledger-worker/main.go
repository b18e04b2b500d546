package main

import (
	"context"
	"errors"
	"os"

	"parishledger/internal/amqp"
	"parishledger/internal/cli"
	"parishledger/internal/config"
	applog "parishledger/internal/log"
	"parishledger/internal/worker"
)

func main() {
	cfg, logger := cli.MustConfig(applog.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting ledger-worker")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}
	sheetsClient, err := cli.OpenSheets(ctx, cfg)
	if err != nil {
		return err
	}
	if sheetsClient == nil {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	logger.Info("Spreadsheet client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	exporter := worker.NewExportWorker(sheetsClient, sheetsClient.SheetTitle, cfg.Location(), logger)
	err = client.ConsumeSnapshotSaved(ctx, exporter.HandleSnapshotSaved)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
