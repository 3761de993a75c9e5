package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TaskPriority int

const (
	PriorityHigh   TaskPriority = 1
	PriorityMedium TaskPriority = 2
	PriorityLow    TaskPriority = 3
)

func (p TaskPriority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p TaskPriority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return "Unknown"
}

func (p TaskPriority) Emoji() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	case PriorityLow:
		return "🟢"
	}
	return "⚪"
}

type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          int64        `bun:"id,pk,autoincrement"`
	UserID      string       `bun:"user_id,notnull"`
	GuildID     string       `bun:"guild_id,notnull"`
	Title       string       `bun:"title,notnull"`
	Description string       `bun:"description"`
	Priority    TaskPriority `bun:"priority,notnull,default:2"`
	DueAt       time.Time    `bun:"due_at,nullzero"`
	Completed   bool         `bun:"completed,notnull,default:false"`
	CompletedAt time.Time    `bun:"completed_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (t *Task) HasDue() bool {
	return !t.DueAt.IsZero()
}
