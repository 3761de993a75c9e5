package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

const taskEntity = "task"

// ErrTaskCompleted is returned when editing a task that is already done.
var ErrTaskCompleted = errors.New("task is already completed")

type TaskStatusFilter string

const (
	TaskFilterAll       TaskStatusFilter = "all"
	TaskFilterPending   TaskStatusFilter = "pending"
	TaskFilterCompleted TaskStatusFilter = "completed"
)

type TaskFilter struct {
	Status   TaskStatusFilter
	Priority models.TaskPriority // zero matches every priority
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	CountOpen(ctx context.Context, userID, guildID string) (int, error)
	List(ctx context.Context, userID, guildID string, filter TaskFilter) ([]*models.Task, error)
	GetOwned(ctx context.Context, id int64, userID, guildID string) (*models.Task, error)
	// Complete marks a task done. It reports false if the task was already complete.
	Complete(ctx context.Context, id int64, at time.Time) (bool, error)
	Update(ctx context.Context, task *models.Task, columns ...string) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	*BaseRepository
}

func NewTaskRepository(db *bun.DB) TaskRepository {
	return &taskRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.ValidateRequired(map[string]interface{}{
		"user_id":  task.UserID,
		"guild_id": task.GuildID,
		"title":    task.Title,
	}); err != nil {
		return err
	}
	if task.Priority == 0 {
		task.Priority = models.PriorityMedium
	}
	if !task.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "must be 1 (High), 2 (Medium) or 3 (Low)"}
	}

	task.DueAt = dbTime(task.DueAt)
	task.Completed = false
	task.CompletedAt = time.Time{}
	task.CreatedAt = dbTime(time.Now())

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(task).Exec(ctx)
	return r.HandleError("create", taskEntity, err)
}

func (r *taskRepository) CountOpen(ctx context.Context, userID, guildID string) (int, error) {
	return r.count(ctx, taskEntity, r.db.NewSelect().
		Model((*models.Task)(nil)).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID).
		Where("completed = ?", false))
}

func (r *taskRepository) List(ctx context.Context, userID, guildID string, filter TaskFilter) ([]*models.Task, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var tasks []*models.Task
	q := r.db.NewSelect().
		Model(&tasks).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID)

	switch filter.Status {
	case TaskFilterPending:
		q = q.Where("completed = ?", false)
	case TaskFilterCompleted:
		q = q.Where("completed = ?", true)
	}
	if filter.Priority != 0 {
		q = q.Where("priority = ?", filter.Priority)
	}

	// Tasks without a due date sort after dated ones.
	err := q.
		OrderExpr("priority ASC").
		OrderExpr("CASE WHEN due_at IS NULL THEN 1 ELSE 0 END ASC").
		OrderExpr("due_at ASC").
		OrderExpr("created_at DESC").
		OrderExpr("id DESC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list", taskEntity, err)
	}
	return tasks, nil
}

func (r *taskRepository) GetOwned(ctx context.Context, id int64, userID, guildID string) (*models.Task, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	task := new(models.Task)
	err := r.db.NewSelect().
		Model(task).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get_owned", taskEntity, id, err)
	}
	return task, nil
}

func (r *taskRepository) Complete(ctx context.Context, id int64, at time.Time) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Table("tasks").
		Set("completed = ?", true).
		Set("completed_at = ?", dbTime(at)).
		Where("id = ?", id).
		Where("completed = ?", false).
		Exec(ctx)
	if err != nil {
		return false, r.HandleErrorWithID("complete", taskEntity, id, err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return true, nil
	}
	return false, r.ensureExists(ctx, taskEntity, "tasks", id)
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	if task.Priority != 0 && !task.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "must be 1 (High), 2 (Medium) or 3 (Low)"}
	}
	task.DueAt = dbTime(task.DueAt)

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model(task).
		Column(columns...).
		WherePK().
		Where("completed = ?", false).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("update", taskEntity, task.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}
	if err = r.ensureExists(ctx, taskEntity, "tasks", task.ID); err != nil {
		return err
	}
	return ErrTaskCompleted
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("delete", taskEntity, id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: taskEntity, ID: id}
	}
	return nil
}
