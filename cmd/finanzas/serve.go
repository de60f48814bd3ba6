package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/core"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

const (
	listCacheSize = 1000
	listCacheTTL  = 5 * time.Minute
)

func serveCmd() *cobra.Command {
	var withGenerator bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			return serve(cmd.Context(), withGenerator)
		},
	}
	cmd.Flags().BoolVar(&withGenerator, "with-generator", false, "also run the recurring generator every GENERATOR_INTERVAL")
	return cmd
}

func serve(ctx context.Context, withGenerator bool) error {
	logger := slog.Default()

	be, err := cli.OpenRepository(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	lists := cache.NewLRUCache[[]core.DefinitionSummary](listCacheSize, listCacheTTL)
	caches := cache.NewManager()
	caches.Register(lists)
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	defs := services.NewDefinitionService(be.Repo, be.Events, lists)
	generator := services.NewGenerator(be.Repo, be.Events, cfg.GeneratorConcurrency)
	generator.OnItemCreated(defs.Invalidate)
	if withGenerator {
		go runGeneratorLoop(ctx, generator, cfg.GeneratorInterval)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Definitions:        defs,
		Tasks:              services.NewTaskService(be.Repo),
		Generator:          generator,
		JWTSecret:          cfg.JWTSecret,
		CronToken:          cfg.CronToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentHTTP}),
		Ready:              readyCheck(be.Repo),
		CacheStats:         lists.Stats,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting finanzas server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// readyCheck pings SQL backends. The memory backend is always ready.
func readyCheck(repo any) func(context.Context) error {
	pinger, ok := repo.(interface{ DB() *sql.DB })
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		return pinger.DB().PingContext(ctx)
	}
}

func runGeneratorLoop(ctx context.Context, g *services.Generator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := g.Run(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Periodic generation failed", "error", err)
			}
		}
	}
}
