package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legiseye/internal/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	Long: `Create or update every table legiseye owns in the configured database.

Examples:
  # Migrate using configs/config.toml
  legiseye migrate

  # Migrate a local sqlite database
  DB_DRIVER=sqlite DB_PATH=legiseye.db legiseye migrate`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		defer func() { _ = logger.Sync() }()

		if err := bootstrap.Migrate(cmd.Context(), cfg, logger); err != nil {
			logger.Error("migrate failed", zap.Error(err))
			return err
		}
		return nil
	},
}
