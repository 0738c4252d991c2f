package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vendor-service/internal/model"
	"vendor-service/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.InitDB(&cfg.DB, log)
		if err != nil {
			return err
		}
		defer database.Close(db)

		models := model.All()
		if err := database.MigrateModels(db, models...); err != nil {
			return err
		}

		log.Info("Database migrations applied", zap.Int("models", len(models)))
		return nil
	},
}
