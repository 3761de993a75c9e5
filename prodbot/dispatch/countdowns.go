package dispatch

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
)

// SweepCountdowns refreshes every active countdown display and announces the
// ones whose target has passed.
func (d *Dispatcher) SweepCountdowns(ctx context.Context) (PassResult, error) {
	countdowns, err := d.repos.Countdowns.ListActive(ctx, repositories.ActiveFilter{})
	if err != nil {
		return PassResult{Family: FamilyCountdowns}, fmt.Errorf("failed to list countdowns: %w", err)
	}

	return runPass(ctx, d, FamilyCountdowns, countdowns,
		func(c *models.Countdown) int64 { return c.ID },
		d.dispatchCountdown,
	), nil
}

func (d *Dispatcher) dispatchCountdown(ctx context.Context, c *models.Countdown) error {
	mark := d.repos.Countdowns.MarkTerminal

	channelID, found, err := d.resolveChannel(ctx, c.ChannelID)
	if err != nil {
		return err
	}
	if !found {
		return orphan(ctx, FamilyCountdowns, c.ID, "channel", mark)
	}

	now := d.now()
	if c.Reached(now) {
		_, err = d.sink.Send(ctx, channelID, discord.MessageCreate{
			Content: config.EmojiParty + " **EVENT REACHED!** " + config.EmojiParty,
			Embeds:  []discord.Embed{utils.CountdownReachedEmbed(c, now)},
		})
		if notify.IsTargetGone(err) {
			return orphan(ctx, FamilyCountdowns, c.ID, "channel", mark)
		}
		if err != nil {
			return err
		}
		return mark(ctx, c.ID, models.StatusCompleted)
	}

	messageID, ok := parseID(c.MessageID)
	if !ok {
		return orphan(ctx, FamilyCountdowns, c.ID, "message", mark)
	}
	found, err = d.sink.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	if !found {
		return orphan(ctx, FamilyCountdowns, c.ID, "message", mark)
	}

	err = d.sink.Edit(ctx, channelID, messageID, discord.MessageUpdate{
		Embeds: &[]discord.Embed{utils.CountdownEmbed(c, now)},
	})
	if notify.IsTargetGone(err) {
		return orphan(ctx, FamilyCountdowns, c.ID, "message", mark)
	}
	return err
}
