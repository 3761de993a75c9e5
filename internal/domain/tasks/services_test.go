package tasks

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/disgoorg/productivity-bot/internal/domain/tasks/mock"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"go.uber.org/mock/gomock"
)

var owner = Owner{UserID: "123", GuildID: "456"}

func newTestService(t *testing.T, maxOpen int) (*service, *mock.MockRepository) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	s := NewService(repo, maxOpen)
	s.now = func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) }
	return s, repo
}

func Test_service_Add(t *testing.T) {
	tests := []struct {
		name         string
		draft        Draft
		open         int
		expectCount  bool
		expectCreate bool
		wantPriority models.TaskPriority
		wantErr      func(error) bool
	}{
		{
			name:         "Defaults to medium priority",
			draft:        Draft{Title: "  Book flights  "},
			expectCount:  true,
			expectCreate: true,
			wantPriority: models.PriorityMedium,
		},
		{
			name:         "Keeps explicit priority",
			draft:        Draft{Title: "Pay invoice", Priority: models.PriorityHigh},
			open:         49,
			expectCount:  true,
			expectCreate: true,
			wantPriority: models.PriorityHigh,
		},
		{
			name:        "Limit reached",
			draft:       Draft{Title: "One too many"},
			open:        50,
			expectCount: true,
			wantErr:     repositories.IsValidation,
		},
		{
			name:    "Empty title",
			draft:   Draft{Title: "   "},
			wantErr: repositories.IsValidation,
		},
		{
			name:    "Invalid priority",
			draft:   Draft{Title: "Odd", Priority: models.TaskPriority(7)},
			wantErr: repositories.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo := newTestService(t, 50)
			if tt.expectCount {
				repo.EXPECT().CountOpen(gomock.Any(), "123", "456").Return(tt.open, nil)
			}
			if tt.expectCreate {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, task *models.Task) error {
					task.ID = 42
					return nil
				})
			}

			got, err := s.Add(context.Background(), owner, tt.draft)
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Errorf("service.Add() error = %v, want classified error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("service.Add() unexpected error = %v", err)
			}
			if got.ID != 42 || got.Priority != tt.wantPriority {
				t.Errorf("service.Add() got = %+v", got)
			}
			if got.Title != "Book flights" && tt.draft.Title == "  Book flights  " {
				t.Errorf("service.Add() title not trimmed: %q", got.Title)
			}
		})
	}
}

func Test_service_List(t *testing.T) {
	s, repo := newTestService(t, 0)
	filter := repositories.TaskFilter{Status: repositories.TaskFilterAll}
	repo.EXPECT().List(gomock.Any(), "123", "456", filter).Return(mock.Tasks, nil)

	got, pages, err := s.List(context.Background(), owner, filter)
	if err != nil {
		t.Fatalf("service.List() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("service.List() pages = %d, want 1", pages)
	}
	want := []int64{1, 2, 3}
	ids := make([]int64, 0, len(got))
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("service.List() ids = %v, want %v", ids, want)
	}
}

func Test_service_Complete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		task := *mock.Tasks[1]
		repo.EXPECT().GetOwned(gomock.Any(), int64(2), "123", "456").Return(&task, nil)
		repo.EXPECT().Complete(gomock.Any(), int64(2), s.now()).Return(true, nil)

		got, err := s.Complete(context.Background(), owner, 2)
		if err != nil {
			t.Fatalf("service.Complete() error = %v", err)
		}
		if !got.Completed || !got.CompletedAt.Equal(s.now()) {
			t.Errorf("service.Complete() got = %+v", got)
		}
	})

	t.Run("Already completed", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		task := *mock.Tasks[2]
		repo.EXPECT().GetOwned(gomock.Any(), int64(3), "123", "456").Return(&task, nil)

		_, err := s.Complete(context.Background(), owner, 3)
		if !errors.Is(err, repositories.ErrTaskCompleted) {
			t.Errorf("service.Complete() error = %v, want ErrTaskCompleted", err)
		}
	})

	t.Run("Lost race", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		task := *mock.Tasks[0]
		repo.EXPECT().GetOwned(gomock.Any(), int64(1), "123", "456").Return(&task, nil)
		repo.EXPECT().Complete(gomock.Any(), int64(1), gomock.Any()).Return(false, nil)

		_, err := s.Complete(context.Background(), owner, 1)
		if !errors.Is(err, repositories.ErrTaskCompleted) {
			t.Errorf("service.Complete() error = %v, want ErrTaskCompleted", err)
		}
	})

	t.Run("Someone else's task", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		repo.EXPECT().GetOwned(gomock.Any(), int64(9), "123", "456").
			Return(nil, &repositories.NotFoundError{Entity: "task", ID: int64(9)})

		_, err := s.Complete(context.Background(), owner, 9)
		if !repositories.IsNotFound(err) {
			t.Errorf("service.Complete() error = %v, want not found", err)
		}
	})
}

func Test_service_Edit(t *testing.T) {
	title := "Write changelog"
	low := models.PriorityLow

	t.Run("Updates only the changed columns", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		task := *mock.Tasks[0]
		repo.EXPECT().GetOwned(gomock.Any(), int64(1), "123", "456").Return(&task, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any(), "title", "priority", "due_at").Return(nil)

		got, err := s.Edit(context.Background(), owner, 1, Changes{Title: &title, Priority: &low, ClearDue: true})
		if err != nil {
			t.Fatalf("service.Edit() error = %v", err)
		}
		if got.Title != title || got.Priority != low || !got.DueAt.IsZero() {
			t.Errorf("service.Edit() got = %+v", got)
		}
	})

	t.Run("Nothing to change", func(t *testing.T) {
		s, _ := newTestService(t, 0)
		_, err := s.Edit(context.Background(), owner, 1, Changes{})
		if !repositories.IsValidation(err) {
			t.Errorf("service.Edit() error = %v, want validation error", err)
		}
	})

	t.Run("Completed task is frozen", func(t *testing.T) {
		s, repo := newTestService(t, 0)
		task := *mock.Tasks[2]
		repo.EXPECT().GetOwned(gomock.Any(), int64(3), "123", "456").Return(&task, nil)

		_, err := s.Edit(context.Background(), owner, 3, Changes{Title: &title})
		if !errors.Is(err, repositories.ErrTaskCompleted) {
			t.Errorf("service.Edit() error = %v, want ErrTaskCompleted", err)
		}
	})
}

func Test_service_Remove(t *testing.T) {
	s, repo := newTestService(t, 0)
	task := *mock.Tasks[1]
	repo.EXPECT().GetOwned(gomock.Any(), int64(2), "123", "456").Return(&task, nil)
	repo.EXPECT().Delete(gomock.Any(), int64(2)).Return(nil)

	got, err := s.Remove(context.Background(), owner, 2)
	if err != nil {
		t.Fatalf("service.Remove() error = %v", err)
	}
	if got.Title != "Review onboarding doc" {
		t.Errorf("service.Remove() got = %+v", got)
	}
}

func Test_service_Suggest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
		want  []int64
	}{
		{name: "Empty query keeps list order", query: "", limit: 2, want: []int64{1, 2}},
		{name: "Fuzzy title", query: "onbrd", limit: 25, want: []int64{2}},
		{name: "Hash prefixed id", query: "#3", limit: 25, want: []int64{3}},
		{name: "No match", query: "zzz", limit: 25, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo := newTestService(t, 0)
			repo.EXPECT().List(gomock.Any(), "123", "456", gomock.Any()).Return(mock.Tasks, nil)

			got, err := s.Suggest(context.Background(), owner, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("service.Suggest() error = %v", err)
			}
			ids := make([]int64, 0, len(got))
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("service.Suggest() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestTask_Overdue(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "past due", task: Task{DueAt: now.Add(-time.Hour)}, want: true},
		{name: "future due", task: Task{DueAt: now.Add(time.Hour)}},
		{name: "no due date", task: Task{}},
		{name: "completed", task: Task{DueAt: now.Add(-time.Hour), Completed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Overdue(now); got != tt.want {
				t.Errorf("Task.Overdue() = %v, want %v", got, tt.want)
			}
		})
	}
}
