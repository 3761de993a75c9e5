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
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
)

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "Show bot health and what is scheduled in this server",
}

func StatusHandler(b *prodbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID, err := guildOf(e)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		overview, err := repositories.LoadOverview(ctx, guildID.String(),
			b.CountdownRepository, b.ReminderRepository, b.ScheduledMessageRepository, b.PollRepository)
		if err != nil {
			return utils.EH.HandleError(e, err)
		}

		now := time.Now()
		embed := discord.NewEmbedBuilder().
			SetTitle("Bot status").
			SetColor(config.InfoColor).
			AddField("Version", fmt.Sprintf("`%s` (`%s`)", b.Version, b.Commit), true).
			AddField("Uptime", utils.FormatDuration(now.Sub(b.StartedAt).Truncate(time.Second)), true).
			AddField("Timezone", b.Location.String(), true).
			AddField("Active in this server", fmt.Sprintf(
				"%s Countdowns: **%d**\n%s Reminders: **%d**\n%s Scheduled messages: **%d**\n%s Polls: **%d**",
				config.EmojiCountdown, overview.Countdowns,
				config.EmojiReminder, overview.Reminders,
				config.EmojiMessage, overview.ScheduledMessages,
				config.EmojiPoll, overview.Polls,
			), false).
			AddField("Sweeps", sweepLines(b, now), false)

		if b.DB != nil {
			s := b.DB.Stats()
			embed.AddField("Database", fmt.Sprintf("%s • %d open • %d in use • %d idle",
				s.Driver, s.OpenConns, s.InUse, s.Idle), false)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed.SetTimestamp(now).Build()},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
}

func sweepLines(b *prodbot.Bot, now time.Time) string {
	stats := b.Scheduler.Stats()
	var sb strings.Builder
	for _, family := range b.Scheduler.Families() {
		s := stats[family]
		last := "never"
		if !s.LastRun.IsZero() {
			last = utils.FormatDuration(now.Sub(s.LastRun).Truncate(time.Second)) + " ago"
		}
		fmt.Fprintf(&sb, "`%s` every %s • last %s • %d runs • %d sent", family, s.Cadence, last, s.Runs, s.Processed)
		if s.Failed > 0 || s.Orphaned > 0 {
			fmt.Fprintf(&sb, " • %d failed • %d orphaned", s.Failed, s.Orphaned)
		}
		if s.LastError != "" {
			fmt.Fprintf(&sb, "\n%s %s", config.EmojiWarning, utils.Truncate(s.LastError, 100))
		}
		sb.WriteByte('\n')
	}
	if sb.Len() == 0 {
		return "No sweeps registered."
	}
	return sb.String()
}
