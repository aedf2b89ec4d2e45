package cli

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"task-planner/internal/config"
	"task-planner/internal/logging"
	"task-planner/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, closer := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: logging.FileConfig{Path: cfg.Log.File}})
	defer closer.Close()

	// NewDB migrates on open.
	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer closeDB(db)

	log.Info().Msg("schema up to date")
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
