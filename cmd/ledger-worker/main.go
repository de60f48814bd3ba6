package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	mem "finanzas/internal/sheets/memory"
	"finanzas/internal/worker"
)

func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(*configFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting ledger-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	var cleanups []func()
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	})

	be, err := cli.OpenRepository(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	cleanups = append(cleanups, func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	ledger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger client", "error", err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	cleanups = append(cleanups, func() { _ = consumer.Close() })

	w := worker.NewLedgerWorker(be.Repo, ledger, cfg.ExportBatchSize)

	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	go func() {
		if err := consumer.Consume(ctx, w.HandleItemEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exported, failed, err := w.ProcessPending(ctx)
				if err != nil {
					logger.Error("Periodic export failed", "error", err)
					continue
				}
				if exported > 0 || failed > 0 {
					logger.Info("Periodic export complete", "exported", exported, "failed", failed)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// openLedger returns the Google Sheets ledger when a spreadsheet is
// configured and an in-memory ledger otherwise.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.LedgerWriter, error) {
	if !cfg.LedgerEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleLedgerSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
