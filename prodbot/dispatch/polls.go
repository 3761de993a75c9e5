package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/utils"
)

func (d *Dispatcher) SweepPolls(ctx context.Context) (PassResult, error) {
	polls, err := d.repos.Polls.ListDue(ctx, d.now())
	if err != nil {
		return PassResult{Family: FamilyPolls}, fmt.Errorf("failed to list expired polls: %w", err)
	}

	return runPass(ctx, d, FamilyPolls, polls,
		func(p *models.Poll) int64 { return p.ID },
		d.expirePoll,
	), nil
}

// FinalizePoll tallies and closes a poll. If the poll was already closed the
// stored results are returned and closed is false; votes are never recounted.
func (d *Dispatcher) FinalizePoll(ctx context.Context, poll *models.Poll) (results []int, closed bool, err error) {
	if poll.Status.Terminal() {
		return poll.Results, false, nil
	}
	return d.repos.Polls.Finalize(ctx, poll)
}

// expirePoll closes the poll before announcing, so a failed announcement
// never reopens it. A poll whose channel is gone is closed silently.
func (d *Dispatcher) expirePoll(ctx context.Context, p *models.Poll) error {
	// Finalize first: the poll expires even if its channel is gone.
	results, closed, err := d.FinalizePoll(ctx, p)
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}

	channelID, found, err := d.resolveChannel(ctx, p.ChannelID)
	if err != nil || !found {
		slog.Info("Poll closed without announcement",
			slog.String("type", "sweep"),
			slog.String("family", FamilyPolls),
			slog.Int64("item_id", p.ID),
			slog.Any("error", err),
		)
		return nil
	}

	msg := discord.MessageCreate{
		Embeds: []discord.Embed{utils.PollResultsEmbed(p, results, d.now())},
	}
	if messageID, ok := parseID(p.MessageID); ok {
		msg.MessageReference = &discord.MessageReference{
			MessageID:       &messageID,
			ChannelID:       &channelID,
			FailIfNotExists: false,
		}
	}

	if _, err = d.sink.Send(ctx, channelID, msg); err != nil {
		slog.Warn("Failed to announce poll results",
			slog.String("type", "sweep"),
			slog.String("family", FamilyPolls),
			slog.Int64("item_id", p.ID),
			slog.Any("error", err),
		)
	}
	return nil
}
