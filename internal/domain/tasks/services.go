package tasks

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/sahilm/fuzzy"
)

type Service interface {
	Add(ctx context.Context, owner Owner, draft Draft) (Task, error)
	List(ctx context.Context, owner Owner, filter repositories.TaskFilter) ([]Task, int, error)
	Complete(ctx context.Context, owner Owner, id int64) (Task, error)
	Edit(ctx context.Context, owner Owner, id int64, changes Changes) (Task, error)
	Remove(ctx context.Context, owner Owner, id int64) (Task, error)
	Suggest(ctx context.Context, owner Owner, query string, limit int) ([]Task, error)
}

type service struct {
	repository Repository
	maxOpen    int
	now        func() time.Time
}

func NewService(repository Repository, maxOpen int) *service {
	if maxOpen <= 0 {
		maxOpen = config.MaxTasksPerUser
	}
	return &service{
		repository: repository,
		maxOpen:    maxOpen,
		now:        time.Now,
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &repositories.ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(title) > config.MaxTitleLength {
		return "", &repositories.ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", config.MaxTitleLength)}
	}
	return title, nil
}

func (s *service) Add(ctx context.Context, owner Owner, draft Draft) (Task, error) {
	title, err := validateTitle(draft.Title)
	if err != nil {
		return Task{}, err
	}
	if draft.Priority == 0 {
		draft.Priority = models.PriorityMedium
	}
	if !draft.Priority.Valid() {
		return Task{}, &repositories.ValidationError{Field: "priority", Message: "must be High, Medium or Low"}
	}

	open, err := s.repository.CountOpen(ctx, owner.UserID, owner.GuildID)
	if err != nil {
		return Task{}, fmt.Errorf("failed to count open tasks: %w", err)
	}
	if open >= s.maxOpen {
		return Task{}, &repositories.ValidationError{
			Message: fmt.Sprintf("You already have %d open tasks. Complete or remove some first.", s.maxOpen),
		}
	}

	task := &models.Task{
		UserID:      owner.UserID,
		GuildID:     owner.GuildID,
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Priority:    draft.Priority,
		DueAt:       draft.DueAt,
	}
	if err = s.repository.Create(ctx, task); err != nil {
		return Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return fromModel(task), nil
}

// List returns the owner's tasks in display order and the page count.
func (s *service) List(ctx context.Context, owner Owner, filter repositories.TaskFilter) ([]Task, int, error) {
	rows, err := s.repository.List(ctx, owner.UserID, owner.GuildID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, fromModel(row))
	}

	pages := int(math.Ceil(float64(len(tasks)) / float64(config.ItemsPerPage)))
	return tasks, pages, nil
}

func (s *service) Complete(ctx context.Context, owner Owner, id int64) (Task, error) {
	task, err := s.repository.GetOwned(ctx, id, owner.UserID, owner.GuildID)
	if err != nil {
		return Task{}, err
	}
	if task.Completed {
		return Task{}, repositories.ErrTaskCompleted
	}

	at := s.now()
	done, err := s.repository.Complete(ctx, task.ID, at)
	if err != nil {
		return Task{}, fmt.Errorf("failed to complete task: %w", err)
	}
	if !done {
		return Task{}, repositories.ErrTaskCompleted
	}

	task.Completed = true
	task.CompletedAt = at
	return fromModel(task), nil
}

func (s *service) Edit(ctx context.Context, owner Owner, id int64, changes Changes) (Task, error) {
	if changes.empty() {
		return Task{}, &repositories.ValidationError{Message: "Nothing to change: pass at least one field."}
	}

	task, err := s.repository.GetOwned(ctx, id, owner.UserID, owner.GuildID)
	if err != nil {
		return Task{}, err
	}
	if task.Completed {
		return Task{}, repositories.ErrTaskCompleted
	}

	var columns []string
	if changes.Title != nil {
		title, err := validateTitle(*changes.Title)
		if err != nil {
			return Task{}, err
		}
		task.Title = title
		columns = append(columns, "title")
	}
	if changes.Description != nil {
		task.Description = strings.TrimSpace(*changes.Description)
		columns = append(columns, "description")
	}
	if changes.Priority != nil {
		if !changes.Priority.Valid() {
			return Task{}, &repositories.ValidationError{Field: "priority", Message: "must be High, Medium or Low"}
		}
		task.Priority = *changes.Priority
		columns = append(columns, "priority")
	}
	switch {
	case changes.ClearDue:
		task.DueAt = time.Time{}
		columns = append(columns, "due_at")
	case changes.DueAt != nil:
		task.DueAt = *changes.DueAt
		columns = append(columns, "due_at")
	}

	if err = s.repository.Update(ctx, task, columns...); err != nil {
		return Task{}, err
	}
	return fromModel(task), nil
}

func (s *service) Remove(ctx context.Context, owner Owner, id int64) (Task, error) {
	task, err := s.repository.GetOwned(ctx, id, owner.UserID, owner.GuildID)
	if err != nil {
		return Task{}, err
	}
	if err = s.repository.Delete(ctx, task.ID); err != nil {
		return Task{}, err
	}
	return fromModel(task), nil
}

type taskSource []Task

func (ts taskSource) String(i int) string {
	return fmt.Sprintf("%d %s", ts[i].ID, ts[i].Title)
}

func (ts taskSource) Len() int {
	return len(ts)
}

// Suggest ranks the owner's tasks against query by fuzzy match on id and
// title. An empty query returns tasks in list order.
func (s *service) Suggest(ctx context.Context, owner Owner, query string, limit int) ([]Task, error) {
	tasks, _, err := s.List(ctx, owner, repositories.TaskFilter{Status: repositories.TaskFilterAll})
	if err != nil {
		return nil, err
	}

	query = strings.TrimPrefix(strings.TrimSpace(query), "#")
	if query == "" {
		return tasks[:min(limit, len(tasks))], nil
	}

	matches := fuzzy.FindFrom(query, taskSource(tasks))
	out := make([]Task, 0, min(limit, len(matches)))
	for _, match := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, tasks[match.Index])
	}
	return out, nil
}
