package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/productivity-bot/prodbot"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
)

var Countdown = discord.SlashCommandCreate{
	Name:        "countdown",
	Description: "Start a live countdown to an event",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "Event name",
			Required:    true,
			MaxLength:   intPtr(config.MaxTitleLength),
		},
		discord.ApplicationCommandOptionString{
			Name:        "date",
			Description: "Event date (DD/MM/YYYY)",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "time",
			Description: "Event time (HH:MM), midnight when omitted",
			Required:    false,
		},
	},
}

var Countdowns = discord.SlashCommandCreate{
	Name:        "countdowns",
	Description: "List the active countdowns in this server",
}

var CountdownStop = discord.SlashCommandCreate{
	Name:        "countdown-stop",
	Description: "Stop a countdown",
	Options: []discord.ApplicationCommandOption{
		idOption("id", "Countdown number"),
	},
}

func CountdownHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		data := e.SlashCommandInteractionData()

		target, err := utils.ParseDateTime(data.String("date"), data.String("time"), b.Location)
		if err != nil {
			return utils.EH.CreateUserError(e, err.Error())
		}
		now := time.Now()
		if !target.After(now) {
			return utils.EH.CreateUserError(e, "The event date must be in the future.")
		}

		countdown := &models.Countdown{
			GuildID:   guildID.String(),
			ChannelID: e.ChannelID().String(),
			AuthorID:  e.User().ID.String(),
			Title:     data.String("title"),
			TargetAt:  target,
		}

		// Post first so the stored row always points at a live message.
		if err = e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{utils.CountdownEmbed(countdown, now)},
		}); err != nil {
			return err
		}
		msg, err := e.GetInteractionResponse()
		if err != nil {
			return err
		}
		countdown.MessageID = msg.ID.String()

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		if err = b.CountdownRepository.Create(ctx, countdown); err != nil {
			_, _ = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds: &[]discord.Embed{
					discord.NewEmbedBuilder().
						SetTitle("System Error").
						SetDescription("Failed to save the countdown. Please try again.").
						SetColor(config.ErrorColor).
						Build(),
				},
			})
			return err
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{utils.CountdownEmbed(countdown, now)},
		})
		return err
	}
}

func CountdownsHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		countdowns, err := b.CountdownRepository.ListActive(ctx, repositories.ActiveFilter{GuildID: guildID.String()})
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if len(countdowns) == 0 {
			return utils.EH.CreateInfoEmbed(e, config.EmojiCountdown+" There are no active countdowns in this server.")
		}

		now := time.Now()
		lines := make([]string, 0, len(countdowns))
		for _, c := range countdowns {
			lines = append(lines, fmt.Sprintf("`#%d` **%s** • %s • %s",
				c.ID, utils.Truncate(c.Title, 60), utils.Timestamp(c.TargetAt, "f"), utils.FormatRemaining(now, c.TargetAt)))
		}
		return listPages(b, e, config.EmojiCountdown+" Active countdowns", lines)
	}
}

func CountdownStopHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		id := int64(e.SlashCommandInteractionData().Int("id"))

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		countdown, err := b.CountdownRepository.GetByID(ctx, id)
		if err != nil || countdown.GuildID != guildID.String() || countdown.Status.Terminal() {
			if err == nil || repositories.IsNotFound(err) {
				return utils.EH.CreateNotFoundError(e, "Active countdown", fmt.Sprintf("#%d", id))
			}
			return utils.EH.HandleError(e, err)
		}
		if !canManage(e, countdown.AuthorID) {
			return utils.EH.CreatePermissionError(e, "stop this countdown")
		}

		if err = b.CountdownRepository.MarkTerminal(ctx, id, models.StatusCancelled); err != nil {
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Countdown `#%d` **%s** stopped.", id, countdown.Title))
	}
}
