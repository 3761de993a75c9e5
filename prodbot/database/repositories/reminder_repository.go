package repositories

import (
	"context"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

const reminderEntity = "reminder"

type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Reminder, error)
	MarkTerminal(ctx context.Context, id int64, status models.Status) error
	CancelOwned(ctx context.Context, id int64, userID string) error
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)
}

type reminderRepository struct {
	*BaseRepository
}

func NewReminderRepository(db *bun.DB) ReminderRepository {
	return &reminderRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if err := r.ValidateRequired(map[string]interface{}{
		"user_id":    reminder.UserID,
		"channel_id": reminder.ChannelID,
		"message":    reminder.Message,
		"remind_at":  reminder.RemindAt,
	}); err != nil {
		return err
	}

	reminder.RemindAt = dbTime(reminder.RemindAt)
	reminder.Status = models.StatusActive
	reminder.CreatedAt = dbTime(time.Now())

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(reminder).Exec(ctx)
	return r.HandleError("create", reminderEntity, err)
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	reminder := new(models.Reminder)
	if err := r.selectByID(ctx, reminderEntity, reminder, id); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (r *reminderRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var reminders []*models.Reminder
	err := r.db.NewSelect().
		Model(&reminders).
		Where("status = ?", models.StatusActive).
		Where("remind_at <= ?", dbTime(now)).
		Order("remind_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_due", reminderEntity, err)
	}
	return reminders, nil
}

func (r *reminderRepository) ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Reminder, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var reminders []*models.Reminder
	err := r.activeQuery(filter).
		Model(&reminders).
		Order("remind_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_active", reminderEntity, err)
	}
	return reminders, nil
}

func (r *reminderRepository) CountActive(ctx context.Context, filter ActiveFilter) (int, error) {
	return r.count(ctx, reminderEntity, r.activeQuery(filter).Model((*models.Reminder)(nil)))
}

func (r *reminderRepository) activeQuery(filter ActiveFilter) *bun.SelectQuery {
	q := r.db.NewSelect().Where("status = ?", models.StatusActive)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.GuildID != "" {
		q = q.Where("guild_id = ?", filter.GuildID)
	}
	return q
}

func (r *reminderRepository) MarkTerminal(ctx context.Context, id int64, status models.Status) error {
	return r.markTerminal(ctx, reminderEntity, "reminders", "ended_at", id, status, time.Now())
}

// CancelOwned cancels an active reminder belonging to userID.
func (r *reminderRepository) CancelOwned(ctx context.Context, id int64, userID string) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Table("reminders").
		Set("status = ?", models.StatusCancelled).
		Set("ended_at = ?", dbTime(time.Now())).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Where("status = ?", models.StatusActive).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("cancel", reminderEntity, id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: reminderEntity, ID: id}
	}
	return nil
}
