package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/database"
	"github.com/disgoorg/productivity-bot/prodbot/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
	commit     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "prodbot",
	Short:         "Discord productivity bot: countdowns, reminders, scheduled messages, polls and tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
	rootCmd.Flags().Bool("sync-commands", false, "Whether to sync commands to discord")
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(v, c string) {
	version, commit = v, c
	rootCmd.Version = fmt.Sprintf("%s (%s)", v, c)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
}

// loadConfig reads and validates the config, then installs the logger it
// describes as the slog default.
func loadConfig() (*prodbot.Config, error) {
	slog.SetDefault(slog.New(logger.NewHandler(slog.LevelInfo)))

	cfg, err := prodbot.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var h slog.Handler
	switch cfg.Log.Format {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.Log.SlogLevel(),
			AddSource: cfg.Log.AddSource,
		})
	default:
		h = logger.NewHandler(cfg.Log.SlogLevel())
	}
	slog.SetDefault(slog.New(h))

	slog.Info("Configuration loaded successfully",
		slog.String("type", "sys"),
		slog.String("path", configPath),
		slog.String("db_driver", cfg.DB.Driver))
	return cfg, nil
}

// openDatabase connects and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *prodbot.Config) (*database.DB, error) {
	start := time.Now()

	db, err := database.New(ctx, database.DBConfig{
		Driver:       cfg.DB.Driver,
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Database:     cfg.DB.Database,
		PoolSize:     cfg.DB.PoolSize,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxLifetime:  cfg.DB.MaxLifetime,
		Path:         cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed after %s: %w", time.Since(start), err)
	}

	if err = db.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	slog.Info("Database connected successfully",
		slog.String("type", "db"),
		slog.String("driver", db.Driver()),
		slog.Duration("took", time.Since(start)))
	return db, nil
}
