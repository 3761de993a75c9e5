package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ScheduledMessage struct {
	bun.BaseModel `bun:"table:scheduled_messages,alias:sm"`

	ID             int64     `bun:"id,pk,autoincrement"`
	GuildID        string    `bun:"guild_id,notnull"`
	ChannelID      string    `bun:"channel_id,notnull"`
	AuthorID       string    `bun:"author_id,notnull"`
	Message        string    `bun:"message,notnull"`
	SendAt         time.Time `bun:"send_at,notnull"`
	RepeatInterval int64     `bun:"repeat_interval,notnull,default:0"` // seconds, 0 = one-shot
	RepeatLabel    string    `bun:"repeat_label"`
	Status         Status    `bun:"status,notnull"`
	LastSentAt     time.Time `bun:"last_sent_at,nullzero"`
	EndedAt        time.Time `bun:"ended_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (m *ScheduledMessage) Repeats() bool {
	return m.RepeatInterval > 0
}

func (m *ScheduledMessage) Interval() time.Duration {
	return time.Duration(m.RepeatInterval) * time.Second
}
