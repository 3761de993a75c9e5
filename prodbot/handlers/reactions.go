package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
)

const reactionTimeout = 5 * time.Second

// pollRef is what the poll cache holds per message. A zero ID marks a
// message that is not an open poll.
type pollRef struct {
	ID      int64
	Options int
}

// PollVoter turns number reactions on poll messages into votes.
type PollVoter struct {
	polls repositories.PollRepository
	sink  notify.Sink
	cache *lru.Cache
}

func NewPollVoter(polls repositories.PollRepository, sink notify.Sink, cache *lru.Cache) *PollVoter {
	return &PollVoter{polls: polls, sink: sink, cache: cache}
}

func optionIndex(emoji discord.PartialEmoji) int {
	if emoji.ID != nil || emoji.Name == nil {
		return -1
	}
	for i, e := range config.NumberEmojis {
		if e == *emoji.Name {
			return i
		}
	}
	return -1
}

func (v *PollVoter) lookup(ctx context.Context, messageID snowflake.ID) (pollRef, error) {
	if cached, ok := v.cache.Get(messageID); ok {
		return cached.(pollRef), nil
	}

	poll, err := v.polls.GetActiveByMessage(ctx, messageID.String())
	if repositories.IsNotFound(err) {
		v.cache.Add(messageID, pollRef{})
		return pollRef{}, nil
	}
	if err != nil {
		return pollRef{}, err
	}

	ref := pollRef{ID: poll.ID, Options: len(poll.Options)}
	v.cache.Add(messageID, ref)
	return ref, nil
}

// Track primes the cache for a freshly posted poll.
func (v *PollVoter) Track(poll *models.Poll) {
	if id, err := snowflake.Parse(poll.MessageID); err == nil {
		v.cache.Add(id, pollRef{ID: poll.ID, Options: len(poll.Options)})
	}
}

// Forget marks a message as no longer being an open poll.
func (v *PollVoter) Forget(messageID string) {
	if id, err := snowflake.Parse(messageID); err == nil {
		v.cache.Add(id, pollRef{})
	}
}

// Add records userID's vote and clears their other number reactions, so the
// message shows one marker per voter. The last reaction wins.
func (v *PollVoter) Add(ctx context.Context, channelID, messageID, userID snowflake.ID, emoji discord.PartialEmoji) error {
	option := optionIndex(emoji)
	if option < 0 {
		return nil
	}

	ref, err := v.lookup(ctx, messageID)
	if err != nil || ref.ID == 0 {
		return err
	}
	if option >= ref.Options {
		return v.sink.RemoveUserReaction(ctx, channelID, messageID, *emoji.Name, userID)
	}

	err = v.polls.CastVote(ctx, ref.ID, userID.String(), option)
	if errors.Is(err, repositories.ErrPollClosed) {
		v.cache.Add(messageID, pollRef{})
		return nil
	}
	if err != nil {
		return err
	}

	for i := 0; i < ref.Options; i++ {
		if i == option {
			continue
		}
		if err = v.sink.RemoveUserReaction(ctx, channelID, messageID, config.NumberEmojis[i], userID); err != nil {
			slog.Debug("Failed to clear previous vote reaction",
				slog.String("type", "cmd"),
				slog.Int64("poll_id", ref.ID),
				slog.Int("option", i),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// Remove drops userID's vote if it is still for the reacted option.
func (v *PollVoter) Remove(ctx context.Context, messageID, userID snowflake.ID, emoji discord.PartialEmoji) error {
	option := optionIndex(emoji)
	if option < 0 {
		return nil
	}

	ref, err := v.lookup(ctx, messageID)
	if err != nil || ref.ID == 0 {
		return err
	}

	_, err = v.polls.RemoveVote(ctx, ref.ID, userID.String(), option)
	return err
}

// PollReactionListener adapts the voter to gateway reaction events.
func PollReactionListener(voter *PollVoter) bot.EventListener {
	return &events.ListenerAdapter{
		OnGuildMessageReactionAdd: func(e *events.GuildMessageReactionAdd) {
			if e.UserID == e.Client().ID() || e.Member.User.Bot {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), reactionTimeout)
			defer cancel()

			if err := voter.Add(ctx, e.ChannelID, e.MessageID, e.UserID, e.Emoji); err != nil {
				slog.Error("Failed to record poll vote",
					slog.String("type", "db"),
					slog.String("message_id", e.MessageID.String()),
					slog.String("user_id", e.UserID.String()),
					slog.Any("error", err),
				)
			}
		},
		OnGuildMessageReactionRemove: func(e *events.GuildMessageReactionRemove) {
			if e.UserID == e.Client().ID() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), reactionTimeout)
			defer cancel()

			if err := voter.Remove(ctx, e.MessageID, e.UserID, e.Emoji); err != nil {
				slog.Error("Failed to withdraw poll vote",
					slog.String("type", "db"),
					slog.String("message_id", e.MessageID.String()),
					slog.String("user_id", e.UserID.String()),
					slog.Any("error", err),
				)
			}
		},
	}
}
