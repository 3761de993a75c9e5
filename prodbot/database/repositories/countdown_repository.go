package repositories

import (
	"context"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

const countdownEntity = "countdown"

type CountdownRepository interface {
	Create(ctx context.Context, countdown *models.Countdown) error
	GetByID(ctx context.Context, id int64) (*models.Countdown, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Countdown, error)
	ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Countdown, error)
	MarkTerminal(ctx context.Context, id int64, status models.Status) error
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)
}

type countdownRepository struct {
	*BaseRepository
}

func NewCountdownRepository(db *bun.DB) CountdownRepository {
	return &countdownRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *countdownRepository) Create(ctx context.Context, countdown *models.Countdown) error {
	if err := r.ValidateRequired(map[string]interface{}{
		"guild_id":   countdown.GuildID,
		"channel_id": countdown.ChannelID,
		"author_id":  countdown.AuthorID,
		"title":      countdown.Title,
		"target_at":  countdown.TargetAt,
	}); err != nil {
		return err
	}

	countdown.TargetAt = dbTime(countdown.TargetAt)
	countdown.Status = models.StatusActive
	countdown.CreatedAt = dbTime(time.Now())

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(countdown).Exec(ctx)
	return r.HandleError("create", countdownEntity, err)
}

func (r *countdownRepository) GetByID(ctx context.Context, id int64) (*models.Countdown, error) {
	countdown := new(models.Countdown)
	if err := r.selectByID(ctx, countdownEntity, countdown, id); err != nil {
		return nil, err
	}
	return countdown, nil
}

func (r *countdownRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Countdown, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var countdowns []*models.Countdown
	err := r.db.NewSelect().
		Model(&countdowns).
		Where("status = ?", models.StatusActive).
		Where("target_at <= ?", dbTime(now)).
		Order("target_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_due", countdownEntity, err)
	}
	return countdowns, nil
}

func (r *countdownRepository) ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Countdown, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var countdowns []*models.Countdown
	err := r.activeQuery(filter).
		Model(&countdowns).
		Order("target_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_active", countdownEntity, err)
	}
	return countdowns, nil
}

func (r *countdownRepository) CountActive(ctx context.Context, filter ActiveFilter) (int, error) {
	return r.count(ctx, countdownEntity, r.activeQuery(filter).Model((*models.Countdown)(nil)))
}

func (r *countdownRepository) activeQuery(filter ActiveFilter) *bun.SelectQuery {
	q := r.db.NewSelect().Where("status = ?", models.StatusActive)
	if filter.GuildID != "" {
		q = q.Where("guild_id = ?", filter.GuildID)
	}
	if filter.UserID != "" {
		q = q.Where("author_id = ?", filter.UserID)
	}
	return q
}

func (r *countdownRepository) MarkTerminal(ctx context.Context, id int64, status models.Status) error {
	return r.markTerminal(ctx, countdownEntity, "countdowns", "ended_at", id, status, time.Now())
}
