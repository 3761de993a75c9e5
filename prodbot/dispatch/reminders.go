package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
	"github.com/disgoorg/snowflake/v2"
)

func (d *Dispatcher) SweepReminders(ctx context.Context) (PassResult, error) {
	reminders, err := d.repos.Reminders.ListDue(ctx, d.now())
	if err != nil {
		return PassResult{Family: FamilyReminders}, fmt.Errorf("failed to list due reminders: %w", err)
	}

	return runPass(ctx, d, FamilyReminders, reminders,
		func(r *models.Reminder) int64 { return r.ID },
		d.dispatchReminder,
	), nil
}

// dispatchReminder delivers to the channel and falls back to a direct
// message when the channel refuses. A reminder whose fallback also fails is
// still completed; only transient channel errors leave it for the next pass.
func (d *Dispatcher) dispatchReminder(ctx context.Context, r *models.Reminder) error {
	mark := d.repos.Reminders.MarkTerminal

	userID, ok := parseID(r.UserID)
	if !ok {
		return orphan(ctx, FamilyReminders, r.ID, "user", mark)
	}
	found, err := d.sink.ResolveUser(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return orphan(ctx, FamilyReminders, r.ID, "user", mark)
	}

	channelID, found, err := d.resolveChannel(ctx, r.ChannelID)
	if err != nil {
		return err
	}
	if !found {
		return orphan(ctx, FamilyReminders, r.ID, "channel", mark)
	}

	embed := utils.ReminderEmbed(r, d.now())
	_, err = d.sink.Send(ctx, channelID, discord.MessageCreate{
		Content:         fmt.Sprintf("<@%s>", r.UserID),
		Embeds:          []discord.Embed{embed},
		AllowedMentions: &discord.AllowedMentions{Users: []snowflake.ID{userID}},
	})

	switch {
	case err == nil:
	case notify.IsPermissionDenied(err) || notify.IsTargetGone(err):
		if _, dmErr := d.sink.SendDirect(ctx, userID, discord.MessageCreate{
			Embeds: []discord.Embed{embed},
		}); dmErr != nil {
			slog.Warn("Reminder could not be delivered",
				slog.String("type", "sweep"),
				slog.String("family", FamilyReminders),
				slog.Int64("item_id", r.ID),
				slog.Any("channel_error", err),
				slog.Any("dm_error", dmErr),
			)
		}
	default:
		return err
	}

	return mark(ctx, r.ID, models.StatusCompleted)
}
