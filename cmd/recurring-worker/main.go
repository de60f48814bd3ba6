package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"finanzas/internal/cli"
	"finanzas/internal/services"
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
	logger.Info("Starting recurring-worker")

	var cleanup func()
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if cleanup != nil {
			cleanup()
		}
	})

	be, err := cli.OpenRepository(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	cleanup = func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}
	if be.Events == nil {
		logger.Info("AMQP disabled - generated items will not be announced")
	}

	generator := services.NewGenerator(be.Repo, be.Events, cfg.GeneratorConcurrency)
	interval := cfg.GeneratorInterval
	logger.Info("Recurring generator configured",
		"interval", interval,
		"concurrency", cfg.GeneratorConcurrency,
		"backend", cfg.DataBackend)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Running initial recurring generation...")
	if res, err := generator.Run(ctx, time.Now()); err != nil {
		logger.Error("Initial generation failed", "error", err)
	} else {
		logger.Info("Initial generation complete", "items_created", res.Created)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				res, err := generator.Run(ctx, now)
				if err != nil {
					logger.Error("Periodic generation failed", "error", err)
					continue
				}
				logger.Info("Periodic generation complete",
					"items_created", res.Created,
					"next_check", now.Add(interval).Format("15:04:05"))
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
