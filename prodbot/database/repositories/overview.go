package repositories

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Overview counts what is currently active in a guild.
type Overview struct {
	Countdowns        int
	Reminders         int
	ScheduledMessages int
	Polls             int
}

func (o Overview) Total() int {
	return o.Countdowns + o.Reminders + o.ScheduledMessages + o.Polls
}

type counter interface {
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)
}

// LoadOverview runs the per-family counts concurrently.
func LoadOverview(ctx context.Context, guildID string, countdowns CountdownRepository, reminders ReminderRepository, messages ScheduledMessageRepository, polls PollRepository) (Overview, error) {
	var o Overview
	filter := ActiveFilter{GuildID: guildID}

	g, ctx := errgroup.WithContext(ctx)
	for _, item := range []struct {
		repo counter
		dst  *int
	}{
		{countdowns, &o.Countdowns},
		{reminders, &o.Reminders},
		{messages, &o.ScheduledMessages},
		{polls, &o.Polls},
	} {
		item := item
		g.Go(func() error {
			n, err := item.repo.CountActive(ctx, filter)
			if err != nil {
				return err
			}
			*item.dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return o, nil
}
