package tasks

import (
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
)

type Task struct {
	ID          int64
	Title       string
	Description string
	Priority    models.TaskPriority
	DueAt       time.Time
	Completed   bool
	CompletedAt time.Time
	CreatedAt   time.Time
}

// Overdue reports whether an open task is past its due date.
func (t Task) Overdue(now time.Time) bool {
	return !t.Completed && !t.DueAt.IsZero() && now.After(t.DueAt)
}

// Owner scopes every task operation: tasks are private to a user within a guild.
type Owner struct {
	UserID  string
	GuildID string
}

// Draft is the input for a new task.
type Draft struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	DueAt       time.Time
}

// Changes lists the fields to edit; nil fields are left untouched.
type Changes struct {
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	DueAt       *time.Time
	ClearDue    bool
}

func (c Changes) empty() bool {
	return c.Title == nil && c.Description == nil && c.Priority == nil && c.DueAt == nil && !c.ClearDue
}

func fromModel(m *models.Task) Task {
	return Task{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Priority:    m.Priority,
		DueAt:       m.DueAt,
		Completed:   m.Completed,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
	}
}
