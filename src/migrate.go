package main

import (
	"errors"
	"spendsage-server/src/config"
	"spendsage-server/src/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.DataBackend != config.BackendPostgres {
				return errors.New("migrations apply only to the postgres backend")
			}

			pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			version, err := db.Migrate(pool)
			if err != nil {
				return err
			}
			log.Info("database migrated", zap.Uint("version", version))
			return nil
		},
	}
}
