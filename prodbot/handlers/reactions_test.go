package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/dbtest"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/notify/mock"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	pollChannel = snowflake.ID(200)
	pollMessage = snowflake.ID(300)
	voter       = snowflake.ID(7)
)

func number(i int) discord.PartialEmoji {
	name := config.NumberEmojis[i]
	return discord.PartialEmoji{Name: &name}
}

func newVoter(t *testing.T) (*PollVoter, repositories.PollRepository, *mock.MockSink, *models.Poll) {
	t.Helper()
	polls := repositories.NewPollRepository(dbtest.Bun(t))
	sink := mock.NewMockSink(gomock.NewController(t))
	cache, err := lru.New(16)
	require.NoError(t, err)

	poll := &models.Poll{
		GuildID:   "100",
		ChannelID: pollChannel.String(),
		MessageID: pollMessage.String(),
		AuthorID:  "1",
		Title:     "Snack?",
		Options:   []string{"Chips", "Fruit", "Cookies"},
	}
	require.NoError(t, polls.Create(context.Background(), poll))
	return NewPollVoter(polls, sink, cache), polls, sink, poll
}

func TestPollVoter_LastReactionWins(t *testing.T) {
	ctx := context.Background()
	v, polls, sink, poll := newVoter(t)

	sink.EXPECT().RemoveUserReaction(gomock.Any(), pollChannel, pollMessage, config.NumberEmojis[1], voter).Return(nil).Times(1)
	sink.EXPECT().RemoveUserReaction(gomock.Any(), pollChannel, pollMessage, config.NumberEmojis[2], voter).Return(nil).Times(2)
	sink.EXPECT().RemoveUserReaction(gomock.Any(), pollChannel, pollMessage, config.NumberEmojis[0], voter).Return(nil).Times(1)

	require.NoError(t, v.Add(ctx, pollChannel, pollMessage, voter, number(0)))
	require.NoError(t, v.Add(ctx, pollChannel, pollMessage, voter, number(1)))

	// The reaction cleared by the bot must not withdraw the newer vote.
	require.NoError(t, v.Remove(ctx, pollMessage, voter, number(0)))

	results, err := polls.Tally(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, results)

	require.NoError(t, v.Remove(ctx, pollMessage, voter, number(1)))
	results, err = polls.Tally(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, results)
}

func TestPollVoter_IgnoresUnrelatedReactions(t *testing.T) {
	ctx := context.Background()
	v, polls, sink, poll := newVoter(t)

	heart := "❤️"
	require.NoError(t, v.Add(ctx, pollChannel, pollMessage, voter, discord.PartialEmoji{Name: &heart}))
	require.NoError(t, v.Add(ctx, pollChannel, snowflake.ID(999), voter, number(0)))

	// Option 4 does not exist on a three-option poll.
	sink.EXPECT().RemoveUserReaction(gomock.Any(), pollChannel, pollMessage, config.NumberEmojis[3], voter).Return(nil)
	require.NoError(t, v.Add(ctx, pollChannel, pollMessage, voter, number(3)))

	results, err := polls.Tally(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, results)
}

func TestPollVoter_ClosedPollRejectsVotes(t *testing.T) {
	ctx := context.Background()
	v, polls, _, poll := newVoter(t)

	v.Track(poll)
	_, closed, err := polls.Finalize(ctx, poll)
	require.NoError(t, err)
	require.True(t, closed)

	require.NoError(t, v.Add(ctx, pollChannel, pollMessage, voter, number(0)))

	stored, err := polls.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, stored.Results)

	cached, ok := v.cache.Get(pollMessage)
	require.True(t, ok)
	assert.Equal(t, pollRef{}, cached)
}

func TestPollVoter_ExpiredPollIgnoresVotesBeforeSweep(t *testing.T) {
	ctx := context.Background()
	_, polls, sink, _ := newVoter(t)

	cache, err := lru.New(16)
	require.NoError(t, err)
	v := NewPollVoter(polls, sink, cache)

	expired := &models.Poll{
		GuildID:   "100",
		ChannelID: pollChannel.String(),
		MessageID: "301",
		AuthorID:  "1",
		Title:     "Already over?",
		Options:   []string{"Yes", "No"},
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, polls.Create(ctx, expired))

	require.NoError(t, v.Add(ctx, pollChannel, snowflake.ID(301), voter, number(0)))

	results, err := polls.Tally(ctx, expired)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, results)

	cached, ok := v.cache.Get(snowflake.ID(301))
	require.True(t, ok)
	assert.Equal(t, pollRef{}, cached)
}

func TestPollReactionListener_HandlesReactionEvents(t *testing.T) {
	v, _, _, _ := newVoter(t)

	adapter, ok := PollReactionListener(v).(*events.ListenerAdapter)
	require.True(t, ok)
	assert.NotNil(t, adapter.OnGuildMessageReactionAdd)
	assert.NotNil(t, adapter.OnGuildMessageReactionRemove)
}
