package tasks

import (
	"context"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	CountOpen(ctx context.Context, userID, guildID string) (int, error)
	List(ctx context.Context, userID, guildID string, filter repositories.TaskFilter) ([]*models.Task, error)
	GetOwned(ctx context.Context, id int64, userID, guildID string) (*models.Task, error)
	Complete(ctx context.Context, id int64, at time.Time) (bool, error)
	Update(ctx context.Context, task *models.Task, columns ...string) error
	Delete(ctx context.Context, id int64) error
}
