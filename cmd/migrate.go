package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		db, err := openDatabase(ctx, cfg)
		if err != nil {
			slog.Error("Migration failed", slog.String("type", "db"), slog.Any("error", err))
			return err
		}
		defer db.Close()

		schemaVersion, err := db.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		slog.Info("Migration completed successfully!",
			slog.String("type", "db"),
			slog.String("schema_version", schemaVersion))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCMD)
}
