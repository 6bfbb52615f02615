package main

import (
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/config"
	"github.com/iliyamo/inventory-api/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cfg.StoreBackend != config.StoreMySQL {
				logger.Info("nothing to migrate", zap.String("store", cfg.StoreBackend))
				return nil
			}

			db, err := database.Open(cmd.Context(), database.OptionsFrom(cfg))
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("db", cfg.DBName))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, rootFlags)
	return cmd
}
