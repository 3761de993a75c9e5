package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
)

func ReminderEmbed(r *models.Reminder, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(config.EmojiReminder+" Reminder").
		SetDescription(r.Message).
		SetColor(config.InfoColor).
		AddField("Created", Timestamp(r.CreatedAt, "R"), true).
		SetFooterText(fmt.Sprintf("Reminder #%d", r.ID)).
		SetTimestamp(now).
		Build()
}

func CountdownEmbed(c *models.Countdown, now time.Time) discord.Embed {
	eb := discord.NewEmbedBuilder().
		SetTitle(config.EmojiCountdown+" "+c.Title).
		SetColor(config.SuccessColor).
		AddField("Event date", Timestamp(c.TargetAt, "F"), false).
		AddField("Time remaining", fmt.Sprintf("%s **%s**", config.EmojiClock, FormatRemaining(now, c.TargetAt)), false)

	if c.TargetAt.After(now) {
		p := CountdownProgress(now, c.TargetAt, config.CountdownWindow)
		eb.AddField("Progress", fmt.Sprintf("`%s` %.1f%%", ProgressBar(p, config.CountdownBarSize), p*100), false)
	}

	return eb.
		SetFooterText(fmt.Sprintf("Countdown #%d • updated automatically", c.ID)).
		SetTimestamp(now).
		Build()
}

func CountdownReachedEmbed(c *models.Countdown, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(config.EmojiCountdown+" "+c.Title).
		SetDescription(config.EmojiParty+" **The event has arrived!** "+config.EmojiParty).
		SetColor(config.GoldColor).
		AddField("Status", "Event in progress!", false).
		SetTimestamp(now).
		Build()
}

func PollEmbed(p *models.Poll) discord.Embed {
	var sb strings.Builder
	for i, opt := range p.Options {
		fmt.Fprintf(&sb, "%s %s\n", config.NumberEmojis[i], opt)
	}

	eb := discord.NewEmbedBuilder().
		SetTitle(config.EmojiPoll+" "+p.Title).
		SetDescription(sb.String()).
		SetColor(config.InfoColor).
		AddField("Author", fmt.Sprintf("<@%s>", p.AuthorID), true)

	if p.HasExpiry() {
		eb.AddField("Ends", Timestamp(p.ExpiresAt, "R"), true)
	}

	return eb.
		SetFooterText("React with a number to vote. Only your last vote counts.").
		Build()
}

// PollResultsEmbed lists options in their original order with count,
// percentage and a bar.
func PollResultsEmbed(p *models.Poll, results []int, now time.Time) discord.Embed {
	total := 0
	for _, n := range results {
		total += n
	}

	eb := discord.NewEmbedBuilder().
		SetTitle(config.EmojiPoll + " Results: " + p.Title).
		SetColor(config.GoldColor).
		SetTimestamp(now)

	for i, opt := range p.Options {
		count := 0
		if i < len(results) {
			count = results[i]
		}
		pct := Percent(count, total)
		eb.AddField(
			fmt.Sprintf("%s %s", config.NumberEmojis[i], opt),
			fmt.Sprintf("`%s` %d vote(s) (%.1f%%)", ProgressBar(pct/100, config.PollBarSize), count, pct),
			false,
		)
	}

	return eb.
		SetFooterText(fmt.Sprintf("Total votes: %d", total)).
		Build()
}
