package dispatch

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
)

func (d *Dispatcher) SweepScheduledMessages(ctx context.Context) (PassResult, error) {
	msgs, err := d.repos.ScheduledMessages.ListDue(ctx, d.now())
	if err != nil {
		return PassResult{Family: FamilyScheduledMessages}, fmt.Errorf("failed to list due scheduled messages: %w", err)
	}

	return runPass(ctx, d, FamilyScheduledMessages, msgs,
		func(m *models.ScheduledMessage) int64 { return m.ID },
		d.dispatchScheduledMessage,
	), nil
}

// dispatchScheduledMessage sends the body; a recurring message is moved to
// now+interval and stays active. Failed sends are retried next pass.
func (d *Dispatcher) dispatchScheduledMessage(ctx context.Context, m *models.ScheduledMessage) error {
	mark := d.repos.ScheduledMessages.MarkTerminal

	channelID, found, err := d.resolveChannel(ctx, m.ChannelID)
	if err != nil {
		return err
	}
	if !found {
		return orphan(ctx, FamilyScheduledMessages, m.ID, "channel", mark)
	}

	_, err = d.sink.Send(ctx, channelID, discord.MessageCreate{Content: m.Message})
	if notify.IsTargetGone(err) {
		return orphan(ctx, FamilyScheduledMessages, m.ID, "channel", mark)
	}
	if err != nil {
		return err
	}

	sentAt := d.now()
	if m.Repeats() {
		return d.repos.ScheduledMessages.Reschedule(ctx, m.ID, sentAt.Add(m.Interval()), sentAt)
	}
	return mark(ctx, m.ID, models.StatusCompleted)
}
