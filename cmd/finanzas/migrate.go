package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"finanzas/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			switch cfg.DataBackend {
			case "sqlite":
				err = storage.MigrateSQLite(cfg.SQLiteDBPath)
			case "postgres":
				err = storage.RunMigrations(storage.Postgres, cfg.PostgresDSN)
			default:
				return fmt.Errorf("backend %q has no migrations", cfg.DataBackend)
			}
			if err != nil {
				return err
			}
			slog.InfoContext(cmd.Context(), "Migrations applied", "backend", cfg.DataBackend)
			return nil
		},
	}
}
