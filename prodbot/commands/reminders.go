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

var Remind = discord.SlashCommandCreate{
	Name:        "remind",
	Description: "Set a personal reminder",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "time",
			Description: "When to remind you (e.g. 30m, 2h, 1d)",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "message",
			Description: "What to remind you about",
			Required:    true,
			MaxLength:   intPtr(config.MaxMessageLength),
		},
	},
}

var Reminders = discord.SlashCommandCreate{
	Name:        "reminders",
	Description: "List your pending reminders",
}

var ReminderCancel = discord.SlashCommandCreate{
	Name:        "reminder-cancel",
	Description: "Cancel one of your reminders",
	Options: []discord.ApplicationCommandOption{
		idOption("id", "Reminder number"),
	},
}

func RemindHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()

		d, err := utils.ParseDuration(data.String("time"))
		if err != nil {
			return utils.EH.CreateUserError(e, err.Error())
		}
		maxDays := b.Cfg.Limits.MaxReminderDays
		if d > time.Duration(maxDays)*24*time.Hour {
			return utils.EH.CreateUserError(e, fmt.Sprintf("Reminders can be at most %d days away.", maxDays))
		}

		guildID := ""
		if id := e.GuildID(); id != nil {
			guildID = id.String()
		}

		reminder := &models.Reminder{
			UserID:    e.User().ID.String(),
			GuildID:   guildID,
			ChannelID: e.ChannelID().String(),
			Message:   data.String("message"),
			RemindAt:  time.Now().Add(d),
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		if err = b.ReminderRepository.Create(ctx, reminder); err != nil {
			return utils.EH.HandleError(e, err)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{
				discord.NewEmbedBuilder().
					SetTitle(config.EmojiReminder+" Reminder set").
					SetDescription(utils.Truncate(reminder.Message, 200)).
					SetColor(config.SuccessColor).
					AddField("When", utils.Timestamp(reminder.RemindAt, "F")+" ("+utils.Timestamp(reminder.RemindAt, "R")+")", false).
					SetFooterText(fmt.Sprintf("Reminder #%d", reminder.ID)).
					Build(),
			},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func RemindersHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		reminders, err := b.ReminderRepository.ListActive(ctx, repositories.ActiveFilter{UserID: e.User().ID.String()})
		if err != nil {
			return utils.EH.HandleError(e, err)
		}
		if len(reminders) == 0 {
			return utils.EH.CreateInfoEmbed(e, config.EmojiReminder+" You have no pending reminders.")
		}

		lines := make([]string, 0, len(reminders))
		for _, r := range reminders {
			lines = append(lines, fmt.Sprintf("`#%d` %s • %s", r.ID, utils.Timestamp(r.RemindAt, "R"), utils.Truncate(r.Message, 80)))
		}
		return listPages(b, e, config.EmojiReminder+" Your reminders", lines)
	}
}

func ReminderCancelHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		id := int64(e.SlashCommandInteractionData().Int("id"))

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		if err := b.ReminderRepository.CancelOwned(ctx, id, e.User().ID.String()); err != nil {
			if repositories.IsNotFound(err) {
				return utils.EH.CreateNotFoundError(e, "Pending reminder", fmt.Sprintf("#%d", id))
			}
			return utils.EH.HandleError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Reminder `#%d` cancelled.", id))
	}
}
