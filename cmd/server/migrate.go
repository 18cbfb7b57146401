package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifestyle-api/internal/repository/postgres"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := postgres.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cmd.Context(), db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("Migrations applied")
	return nil
}
