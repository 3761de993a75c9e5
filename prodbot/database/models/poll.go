package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Poll struct {
	bun.BaseModel `bun:"table:polls,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	GuildID   string    `bun:"guild_id,notnull"`
	ChannelID string    `bun:"channel_id,notnull"`
	MessageID string    `bun:"message_id"`
	AuthorID  string    `bun:"author_id,notnull"`
	Title     string    `bun:"title,notnull"`
	Options   []string  `bun:"options,notnull"`
	ExpiresAt time.Time `bun:"expires_at,nullzero"`
	Status    Status    `bun:"status,notnull"`
	Results   []int     `bun:"results"` // vote count per option, set when finalized
	ClosedAt  time.Time `bun:"closed_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (p *Poll) HasExpiry() bool {
	return !p.ExpiresAt.IsZero()
}

// Open reports whether the poll still takes votes at now.
func (p *Poll) Open(now time.Time) bool {
	if p.Status.Terminal() {
		return false
	}
	return !p.HasExpiry() || p.ExpiresAt.After(now)
}

// PollVote is unique per (poll, voter); a later vote replaces the earlier one.
type PollVote struct {
	bun.BaseModel `bun:"table:poll_votes,alias:pv"`

	ID          int64     `bun:"id,pk,autoincrement"`
	PollID      int64     `bun:"poll_id,notnull,unique:poll_voter"`
	VoterID     string    `bun:"voter_id,notnull,unique:poll_voter"`
	OptionIndex int       `bun:"option_index,notnull"`
	VotedAt     time.Time `bun:"voted_at,notnull"`
}
