package repositories

import (
	"context"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

const scheduledMessageEntity = "scheduled_message"

type ScheduledMessageRepository interface {
	Create(ctx context.Context, msg *models.ScheduledMessage) error
	GetByID(ctx context.Context, id int64) (*models.ScheduledMessage, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledMessage, error)
	ListActive(ctx context.Context, filter ActiveFilter) ([]*models.ScheduledMessage, error)
	MarkTerminal(ctx context.Context, id int64, status models.Status) error
	// Reschedule advances an active recurring message without ending it.
	Reschedule(ctx context.Context, id int64, next time.Time, sentAt time.Time) error
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)
}

type scheduledMessageRepository struct {
	*BaseRepository
}

func NewScheduledMessageRepository(db *bun.DB) ScheduledMessageRepository {
	return &scheduledMessageRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *scheduledMessageRepository) Create(ctx context.Context, msg *models.ScheduledMessage) error {
	if err := r.ValidateRequired(map[string]interface{}{
		"guild_id":   msg.GuildID,
		"channel_id": msg.ChannelID,
		"author_id":  msg.AuthorID,
		"message":    msg.Message,
		"send_at":    msg.SendAt,
	}); err != nil {
		return err
	}
	if msg.RepeatInterval < 0 {
		return &ValidationError{Field: "repeat_interval", Message: "cannot be negative"}
	}

	msg.SendAt = dbTime(msg.SendAt)
	msg.Status = models.StatusActive
	msg.CreatedAt = dbTime(time.Now())

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(msg).Exec(ctx)
	return r.HandleError("create", scheduledMessageEntity, err)
}

func (r *scheduledMessageRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledMessage, error) {
	msg := new(models.ScheduledMessage)
	if err := r.selectByID(ctx, scheduledMessageEntity, msg, id); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *scheduledMessageRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledMessage, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var msgs []*models.ScheduledMessage
	err := r.db.NewSelect().
		Model(&msgs).
		Where("status = ?", models.StatusActive).
		Where("send_at <= ?", dbTime(now)).
		Order("send_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_due", scheduledMessageEntity, err)
	}
	return msgs, nil
}

func (r *scheduledMessageRepository) ListActive(ctx context.Context, filter ActiveFilter) ([]*models.ScheduledMessage, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var msgs []*models.ScheduledMessage
	err := r.activeQuery(filter).
		Model(&msgs).
		Order("send_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_active", scheduledMessageEntity, err)
	}
	return msgs, nil
}

func (r *scheduledMessageRepository) CountActive(ctx context.Context, filter ActiveFilter) (int, error) {
	return r.count(ctx, scheduledMessageEntity, r.activeQuery(filter).Model((*models.ScheduledMessage)(nil)))
}

func (r *scheduledMessageRepository) activeQuery(filter ActiveFilter) *bun.SelectQuery {
	q := r.db.NewSelect().Where("status = ?", models.StatusActive)
	if filter.GuildID != "" {
		q = q.Where("guild_id = ?", filter.GuildID)
	}
	if filter.UserID != "" {
		q = q.Where("author_id = ?", filter.UserID)
	}
	return q
}

func (r *scheduledMessageRepository) MarkTerminal(ctx context.Context, id int64, status models.Status) error {
	return r.markTerminal(ctx, scheduledMessageEntity, "scheduled_messages", "ended_at", id, status, time.Now())
}

func (r *scheduledMessageRepository) Reschedule(ctx context.Context, id int64, next time.Time, sentAt time.Time) error {
	if next.IsZero() {
		return &ValidationError{Field: "send_at", Message: "is required"}
	}

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Table("scheduled_messages").
		Set("send_at = ?", dbTime(next)).
		Set("last_sent_at = ?", dbTime(sentAt)).
		Where("id = ?", id).
		Where("status = ?", models.StatusActive).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("reschedule", scheduledMessageEntity, id, err)
	}

	// A message cancelled mid-pass stays cancelled.
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}
	return r.ensureExists(ctx, scheduledMessageEntity, "scheduled_messages", id)
}
