package notify

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

//go:generate mockgen -source=sink.go -destination=mock/sink.go -package=mock

// Sink is everything the dispatcher needs from the chat platform.
//
// Resolve and Fetch report a missing target as (false, nil); their error is
// reserved for failures that say nothing about existence. Send, Edit and the
// reaction calls return errors already passed through Classify.
type Sink interface {
	ResolveChannel(ctx context.Context, channelID snowflake.ID) (bool, error)
	ResolveUser(ctx context.Context, userID snowflake.ID) (bool, error)
	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (bool, error)
	Send(ctx context.Context, channelID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error)
	Edit(ctx context.Context, channelID, messageID snowflake.ID, msg discord.MessageUpdate) error
	SendDirect(ctx context.Context, userID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error)
	AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error
	RemoveUserReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) error
}
