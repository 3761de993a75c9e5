package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Reminder struct {
	bun.BaseModel `bun:"table:reminders,alias:r"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	GuildID   string    `bun:"guild_id"` // empty for direct-message reminders
	ChannelID string    `bun:"channel_id,notnull"`
	Message   string    `bun:"message,notnull"`
	RemindAt  time.Time `bun:"remind_at,notnull"`
	Status    Status    `bun:"status,notnull"`
	EndedAt   time.Time `bun:"ended_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
