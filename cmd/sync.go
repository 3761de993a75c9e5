package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/commands"
	"github.com/spf13/cobra"
)

var syncCMD = &cobra.Command{
	Use:   "sync-commands",
	Short: "register slash commands with discord and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := disgo.New(cfg.Bot.Token)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		guildIDs, _ := cfg.Bot.DevGuildIDs()
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", guildIDs),
			slog.Int("count", len(commands.Commands)),
		)
		if err = handler.SyncCommands(client, commands.Commands, guildIDs); err != nil {
			return fmt.Errorf("failed to sync commands: %w", err)
		}
		slog.Info("Commands synced", slog.String("type", "sys"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCMD)
}

func syncCommands(b *prodbot.Bot) error {
	guildIDs, _ := b.Cfg.Bot.DevGuildIDs()
	slog.Info("Syncing commands",
		slog.String("type", "sys"),
		slog.Any("guild_ids", guildIDs),
	)
	return handler.SyncCommands(b.Client, commands.Commands, guildIDs)
}
