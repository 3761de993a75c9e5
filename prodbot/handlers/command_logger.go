package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/logger"
	"github.com/disgoorg/snowflake/v2"
)

type interactionInfo struct {
	kind      string
	name      string
	userID    snowflake.ID
	userName  string
	guildID   string
	channelID snowflake.ID
}

// track runs fn with start/finish logging and a timeout. On timeout the
// handler keeps running in the background; only the caller stops waiting.
func track(info interactionInfo, fn func() error) error {
	start := time.Now()

	slog.Debug("Interaction started",
		slog.String("type", "cmd"),
		slog.String("kind", info.kind),
		slog.String("name", info.name),
		slog.String("user_id", info.userID.String()),
		slog.String("user_name", info.userName),
		slog.String("guild_id", info.guildID),
		slog.String("channel_id", info.channelID.String()),
	)

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in %s %s: %v", info.kind, info.name, r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		took := time.Since(start)
		if err == nil && took > config.SlowCommandThreshold {
			slog.Warn("Interaction executed slowly",
				slog.String("type", "cmd"),
				slog.String("kind", info.kind),
				slog.String("name", info.name),
				slog.String("user_name", info.userName),
				slog.String("status", "slow"),
				slog.Duration("took", took),
			)
			return nil
		}
		logger.LogCommand(info.kind+" "+info.name, took, err)
		return err

	case <-time.After(config.CommandExecutionTimeout):
		slog.Error("Interaction timed out",
			slog.String("type", "cmd"),
			slog.String("kind", info.kind),
			slog.String("name", info.name),
			slog.String("user_id", info.userID.String()),
			slog.String("user_name", info.userName),
			slog.String("status", "timeout"),
			slog.Duration("timeout", config.CommandExecutionTimeout),
		)
		return fmt.Errorf("%s %s timed out after %s", info.kind, info.name, config.CommandExecutionTimeout)
	}
}

func guildString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// WrapWithLogging wraps a command handler with logging functionality
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return track(interactionInfo{
			kind:      "command",
			name:      name,
			userID:    e.User().ID,
			userName:  e.User().Username,
			guildID:   guildString(e.GuildID()),
			channelID: e.ChannelID(),
		}, func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler with logging functionality
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return track(interactionInfo{
			kind:      "component",
			name:      name,
			userID:    e.User().ID,
			userName:  e.User().Username,
			guildID:   guildString(e.GuildID()),
			channelID: e.ChannelID(),
		}, func() error { return h(e) })
	}
}

func WrapAutocompleteWithLogging(name string, h handler.AutocompleteHandler) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		return track(interactionInfo{
			kind:      "autocomplete",
			name:      name,
			userID:    e.User().ID,
			userName:  e.User().Username,
			guildID:   guildString(e.GuildID()),
			channelID: e.ChannelID(),
		}, func() error { return h(e) })
	}
}
