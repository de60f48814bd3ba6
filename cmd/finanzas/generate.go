package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/services"
)

func generateCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one recurring generation pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse("2006-01-02", at)
				if err != nil {
					return fmt.Errorf("invalid --at date %q: %w", at, err)
				}
				now = t
			}

			ctx := cmd.Context()
			be, err := cli.OpenRepository(ctx, slog.Default(), cfg)
			if err != nil {
				return err
			}
			defer be.Cleanup()

			res, err := services.NewGenerator(be.Repo, be.Events, cfg.GeneratorConcurrency).Run(ctx, now)
			fmt.Fprintf(cmd.OutOrStdout(), "checked=%d created=%d skipped=%d failed=%d\n",
				res.Checked, res.Created, res.Skipped, res.Failed)
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate dueness at this date (YYYY-MM-DD) instead of now")
	return cmd
}
