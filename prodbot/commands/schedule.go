package commands

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
)

// minRepeat is the shortest accepted repeat interval.
const minRepeat = time.Minute

var Schedule = discord.SlashCommandCreate{
	Name:        "schedule",
	Description: "Schedule a message in a channel",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionChannel{
			Name:         "channel",
			Description:  "Where to send the message",
			Required:     true,
			ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
		},
		discord.ApplicationCommandOptionString{
			Name:        "time",
			Description: "When to send it (e.g. 10m, 2h, 1d)",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "message",
			Description: "Message content",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "repeat",
			Description: "Repeat interval (e.g. 1h, 1d)",
			Required:    false,
		},
	},
}

var Scheduled = discord.SlashCommandCreate{
	Name:        "scheduled",
	Description: "List the scheduled messages in this server",
}

var ScheduleCancel = discord.SlashCommandCreate{
	Name:        "schedule-cancel",
	Description: "Cancel a scheduled message",
	Options: []discord.ApplicationCommandOption{
		idOption("id", "Scheduled message number"),
	},
}

func ScheduleHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if !canManage(e, "") {
			return utils.EH.CreatePermissionError(e, "schedule messages (Manage Messages required)")
		}
		data := e.SlashCommandInteractionData()

		delay, err := utils.ParseDuration(data.String("time"))
		if err != nil {
			return utils.EH.CreateUserError(e, err.Error())
		}

		content := data.String("message")
		if limit := b.Cfg.Limits.MaxMessageLength; utf8.RuneCountInString(content) > limit {
			return utils.EH.CreateUserError(e, fmt.Sprintf("The message can be at most %d characters.", limit))
		}

		var repeat time.Duration
		label, hasRepeat := data.OptString("repeat")
		if hasRepeat {
			if repeat, err = utils.ParseDuration(label); err != nil {
				return utils.EH.CreateUserError(e, err.Error())
			}
			if repeat < minRepeat {
				return utils.EH.CreateUserError(e, "The repeat interval must be at least 1 minute.")
			}
		}

		channel := data.Channel("channel")

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		visible, err := b.Sink.ResolveChannel(ctx, channel.ID)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if !visible {
			return utils.EH.CreateUserError(e, "I can't see that channel.")
		}

		msg := &models.ScheduledMessage{
			GuildID:        guildID.String(),
			ChannelID:      channel.ID.String(),
			AuthorID:       e.User().ID.String(),
			Message:        content,
			SendAt:         time.Now().Add(delay),
			RepeatInterval: int64(repeat / time.Second),
			RepeatLabel:    label,
		}
		if err = b.ScheduledMessageRepository.Create(ctx, msg); err != nil {
			return utils.EH.HandleError(e, err)
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(config.EmojiMessage+" Message scheduled").
			SetDescription(utils.Truncate(content, 200)).
			SetColor(config.SuccessColor).
			AddField("Channel", fmt.Sprintf("<#%s>", msg.ChannelID), true).
			AddField("Sends", utils.Timestamp(msg.SendAt, "F"), true)
		if msg.Repeats() {
			embed.AddField("Repeats", "every "+utils.FormatDuration(msg.Interval()), true)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed.SetFooterText(fmt.Sprintf("Scheduled message #%d", msg.ID)).Build()},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
}

func ScheduledHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		messages, err := b.ScheduledMessageRepository.ListActive(ctx, repositories.ActiveFilter{GuildID: guildID.String()})
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if len(messages) == 0 {
			return utils.EH.CreateInfoEmbed(e, config.EmojiMessage+" There are no scheduled messages in this server.")
		}

		lines := make([]string, 0, len(messages))
		for _, m := range messages {
			line := fmt.Sprintf("`#%d` <#%s> %s", m.ID, m.ChannelID, utils.Timestamp(m.SendAt, "R"))
			if m.Repeats() {
				line += " • every " + utils.FormatDuration(m.Interval())
			}
			lines = append(lines, line+" • "+utils.Truncate(m.Message, 60))
		}
		return listPages(b, e, config.EmojiMessage+" Scheduled messages", lines)
	}
}

func ScheduleCancelHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		id := int64(e.SlashCommandInteractionData().Int("id"))

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		msg, err := b.ScheduledMessageRepository.GetByID(ctx, id)
		if err != nil || msg.GuildID != guildID.String() || msg.Status.Terminal() {
			if err == nil || repositories.IsNotFound(err) {
				return utils.EH.CreateNotFoundError(e, "Scheduled message", fmt.Sprintf("#%d", id))
			}
			return utils.EH.HandleError(e, err)
		}
		if !canManage(e, msg.AuthorID) {
			return utils.EH.CreatePermissionError(e, "cancel this scheduled message")
		}

		if err = b.ScheduledMessageRepository.MarkTerminal(ctx, id, models.StatusCancelled); err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Scheduled message `#%d` cancelled.", id))
	}
}
