package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promotesh/worklog/db"
	"github.com/promotesh/worklog/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database URL is required (set DATABASE_URL)")
		}
		return db.Migrate(cfg.DatabaseURL)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
