package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Countdown struct {
	bun.BaseModel `bun:"table:countdowns,alias:cd"`

	ID        int64     `bun:"id,pk,autoincrement"`
	GuildID   string    `bun:"guild_id,notnull"`
	ChannelID string    `bun:"channel_id,notnull"`
	MessageID string    `bun:"message_id"`
	AuthorID  string    `bun:"author_id,notnull"`
	Title     string    `bun:"title,notnull"`
	TargetAt  time.Time `bun:"target_at,notnull"`
	Status    Status    `bun:"status,notnull"`
	EndedAt   time.Time `bun:"ended_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Reached reports whether the countdown target has passed at now.
func (c *Countdown) Reached(now time.Time) bool {
	return !c.TargetAt.After(now)
}
