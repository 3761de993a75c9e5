package notify

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// RestSink delivers notifications through the Discord REST API.
type RestSink struct {
	rest rest.Rest
}

var _ Sink = (*RestSink)(nil)

func NewRestSink(r rest.Rest) *RestSink {
	return &RestSink{rest: r}
}

func (s *RestSink) ResolveChannel(ctx context.Context, channelID snowflake.ID) (bool, error) {
	_, err := s.rest.GetChannel(channelID, rest.WithCtx(ctx))
	return exists("resolve_channel", err)
}

func (s *RestSink) ResolveUser(ctx context.Context, userID snowflake.ID) (bool, error) {
	_, err := s.rest.GetUser(userID, rest.WithCtx(ctx))
	return exists("resolve_user", err)
}

func (s *RestSink) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (bool, error) {
	_, err := s.rest.GetMessage(channelID, messageID, rest.WithCtx(ctx))
	return exists("fetch_message", err)
}

func (s *RestSink) Send(ctx context.Context, channelID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error) {
	m, err := s.rest.CreateMessage(channelID, msg, rest.WithCtx(ctx))
	if err != nil {
		return 0, Classify("send", err)
	}
	return m.ID, nil
}

func (s *RestSink) Edit(ctx context.Context, channelID, messageID snowflake.ID, msg discord.MessageUpdate) error {
	_, err := s.rest.UpdateMessage(channelID, messageID, msg, rest.WithCtx(ctx))
	return Classify("edit", err)
}

func (s *RestSink) SendDirect(ctx context.Context, userID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error) {
	dm, err := s.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return 0, Classify("open_dm", err)
	}

	m, err := s.rest.CreateMessage(dm.ID(), msg, rest.WithCtx(ctx))
	if err != nil {
		return 0, Classify("send_direct", err)
	}
	return m.ID, nil
}

func (s *RestSink) AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error {
	return Classify("add_reaction", s.rest.AddReaction(channelID, messageID, emoji, rest.WithCtx(ctx)))
}

func (s *RestSink) RemoveUserReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) error {
	return Classify("remove_reaction", s.rest.RemoveUserReaction(channelID, messageID, emoji, userID, rest.WithCtx(ctx)))
}

// exists turns a lookup error into the (found, err) shape of the Sink.
// Forbidden counts as present: the target is there, the bot just can't see it.
func exists(op string, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	switch err := Classify(op, err); {
	case IsTargetGone(err):
		return false, nil
	case IsPermissionDenied(err):
		return true, nil
	default:
		return false, err
	}
}
