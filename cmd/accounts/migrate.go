package main

import (
	"github.com/spf13/cobra"

	"github.com/dtroode/accounts-server/database"
	"github.com/dtroode/accounts-server/internal/config"
)

// NewMigrateCmd applies pending schema migrations and exits.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}

			if err := database.Migrate(cmd.Context(), cfg.Database.DSN); err != nil {
				return err
			}

			version, err := database.Version(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return err
			}
			cmd.Printf("database is at version %d\n", version)
			return nil
		},
	}
}
