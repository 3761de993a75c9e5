package mock

import (
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
)

var due = time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC)

var Tasks = []*models.Task{
	{ID: 1, UserID: "123", GuildID: "456", Title: "Write release notes", Priority: models.PriorityHigh, DueAt: due},
	{ID: 2, UserID: "123", GuildID: "456", Title: "Review onboarding doc", Priority: models.PriorityMedium},
	{ID: 3, UserID: "123", GuildID: "456", Title: "Clean up old branches", Priority: models.PriorityLow, Completed: true, CompletedAt: due},
}
