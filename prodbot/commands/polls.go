package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/logger"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
	"github.com/disgoorg/snowflake/v2"
)

var Poll = discord.SlashCommandCreate{
	Name:        "poll",
	Description: "Create a reaction poll",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "The question",
			Required:    true,
			MaxLength:   intPtr(config.MaxTitleLength),
		},
		discord.ApplicationCommandOptionString{
			Name:        "options",
			Description: "Options separated by | (e.g. Pizza | Sushi | Tacos)",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "duration",
			Description: "Minutes until the poll closes (open until closed manually when omitted)",
			Required:    false,
			MinValue:    intPtr(1),
		},
	},
}

var PollClose = discord.SlashCommandCreate{
	Name:        "poll-close",
	Description: "Close a poll and show the results",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "message_id",
			Description: "ID of the poll message",
			Required:    true,
		},
	},
}

func PollHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		data := e.SlashCommandInteractionData()

		options := utils.SplitOptions(data.String("options"))
		maxOptions := b.Cfg.Limits.MaxPollOptions
		if len(options) < config.MinPollOptions || len(options) > maxOptions {
			return utils.EH.CreateUserError(e, fmt.Sprintf("A poll needs between %d and %d options separated by |.", config.MinPollOptions, maxOptions))
		}

		poll := &models.Poll{
			GuildID:   guildID.String(),
			ChannelID: e.ChannelID().String(),
			AuthorID:  e.User().ID.String(),
			Title:     data.String("title"),
			Options:   options,
		}
		if minutes, ok := data.OptInt("duration"); ok {
			d := time.Duration(minutes) * time.Minute
			if d > time.Duration(b.Cfg.Limits.MaxReminderDays)*24*time.Hour {
				return utils.EH.CreateUserError(e, fmt.Sprintf("A poll can run for at most %d days.", b.Cfg.Limits.MaxReminderDays))
			}
			poll.ExpiresAt = time.Now().Add(d)
		}

		if err = e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{utils.PollEmbed(poll)},
		}); err != nil {
			return err
		}
		msg, err := e.GetInteractionResponse()
		if err != nil {
			return err
		}
		poll.MessageID = msg.ID.String()

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		if err = b.PollRepository.Create(ctx, poll); err != nil {
			_, _ = e.UpdateInteractionResponse(discord.MessageUpdate{
				Content: strPtr(config.EmojiCross + " Failed to save the poll. Please try again."),
				Embeds:  &[]discord.Embed{},
			})
			return err
		}
		b.PollVoter.Track(poll)

		for i := range options {
			if err = b.Sink.AddReaction(ctx, msg.ChannelID, msg.ID, config.NumberEmojis[i]); err != nil {
				logger.LogError("Failed to add poll reaction", err)
				break
			}
		}
		return nil
	}
}

func PollCloseHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		raw := strings.TrimSpace(e.SlashCommandInteractionData().String("message_id"))
		if _, err = snowflake.Parse(raw); err != nil {
			return utils.EH.CreateUserError(e, fmt.Sprintf("%q is not a message ID.", raw))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		poll, err := b.PollRepository.GetByMessage(ctx, guildID.String(), raw)
		if err != nil {
			if repositories.IsNotFound(err) {
				return utils.EH.CreateNotFoundError(e, "Poll", raw)
			}
			return utils.EH.HandleError(e, err)
		}
		if !canManage(e, poll.AuthorID) {
			return utils.EH.CreatePermissionError(e, "close this poll")
		}

		results, closed, err := b.Dispatcher.FinalizePoll(ctx, poll)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		b.PollVoter.Forget(poll.MessageID)

		content := ""
		if !closed {
			content = config.EmojiInfo + " This poll was already closed. Showing the final results."
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: content,
			Embeds:  []discord.Embed{utils.PollResultsEmbed(poll, results, time.Now())},
		})
	}
}

func strPtr(s string) *string {
	return &s
}
