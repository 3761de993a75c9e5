package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/dbtest"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReminder(userID string, at time.Time) *models.Reminder {
	return &models.Reminder{
		UserID:    userID,
		GuildID:   "100",
		ChannelID: "200",
		Message:   "drink water",
		RemindAt:  at,
	}
}

func TestReminderRepository_DueLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewReminderRepository(dbtest.Bun(t))
	now := time.Now().UTC().Truncate(time.Second)

	due := newReminder("1", now.Add(-time.Minute))
	future := newReminder("1", now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, due))
	require.NoError(t, repo.Create(ctx, future))
	assert.Equal(t, models.StatusActive, due.Status)

	items, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, due.ID, items[0].ID)

	require.NoError(t, repo.MarkTerminal(ctx, due.ID, models.StatusCompleted))
	// Terminal is absorbing: a second mark, even with another status, changes nothing.
	require.NoError(t, repo.MarkTerminal(ctx, due.ID, models.StatusOrphaned))

	got, err := repo.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.False(t, got.EndedAt.IsZero())

	items, err = repo.ListDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, future.ID, items[0].ID)

	err = repo.MarkTerminal(ctx, 9999, models.StatusCompleted)
	assert.True(t, IsNotFound(err))

	err = repo.MarkTerminal(ctx, future.ID, models.StatusActive)
	assert.True(t, IsValidation(err))
}

func TestReminderRepository_CreateValidation(t *testing.T) {
	repo := NewReminderRepository(dbtest.Bun(t))

	r := newReminder("1", time.Now())
	r.Message = ""
	err := repo.Create(context.Background(), r)
	assert.True(t, IsValidation(err))
	assert.Zero(t, r.ID)

	r = newReminder("1", time.Time{})
	assert.True(t, IsValidation(repo.Create(context.Background(), r)))
}

func TestReminderRepository_ListActiveOrderAndCancel(t *testing.T) {
	ctx := context.Background()
	repo := NewReminderRepository(dbtest.Bun(t))
	base := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	late := newReminder("1", base.Add(time.Hour))
	first := newReminder("1", base)
	tie := newReminder("1", base)
	other := newReminder("2", base)
	for _, r := range []*models.Reminder{late, first, tie, other} {
		require.NoError(t, repo.Create(ctx, r))
	}

	items, err := repo.ListActive(ctx, ActiveFilter{UserID: "1"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{first.ID, tie.ID, late.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})

	assert.True(t, IsNotFound(repo.CancelOwned(ctx, first.ID, "2")))
	require.NoError(t, repo.CancelOwned(ctx, first.ID, "1"))
	assert.True(t, IsNotFound(repo.CancelOwned(ctx, first.ID, "1")))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	n, err := repo.CountActive(ctx, ActiveFilter{UserID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestScheduledMessageRepository_Reschedule(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduledMessageRepository(dbtest.Bun(t))
	now := time.Now().UTC().Truncate(time.Second)

	msg := &models.ScheduledMessage{
		GuildID:        "100",
		ChannelID:      "200",
		AuthorID:       "1",
		Message:        "standup",
		SendAt:         now.Add(-time.Minute),
		RepeatInterval: int64((24 * time.Hour).Seconds()),
		RepeatLabel:    "1d",
	}
	require.NoError(t, repo.Create(ctx, msg))

	next := now.Add(24 * time.Hour)
	require.NoError(t, repo.Reschedule(ctx, msg.ID, next, now))

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.True(t, next.Equal(got.SendAt), "send_at = %s", got.SendAt)
	assert.True(t, now.Equal(got.LastSentAt))

	items, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, items)

	// A cancelled message is not revived by a late reschedule.
	require.NoError(t, repo.MarkTerminal(ctx, msg.ID, models.StatusCancelled))
	require.NoError(t, repo.Reschedule(ctx, msg.ID, next.Add(time.Hour), now))
	got, err = repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.True(t, next.Equal(got.SendAt))
}

func newPoll(expires time.Time) *models.Poll {
	return &models.Poll{
		GuildID:   "100",
		ChannelID: "200",
		MessageID: "300",
		AuthorID:  "1",
		Title:     "Lunch?",
		Options:   []string{"Pizza", "Sushi", "Tacos"},
		ExpiresAt: expires,
	}
}

func TestPollRepository_VotesAndFinalize(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository(dbtest.Bun(t))

	poll := newPoll(time.Time{})
	require.NoError(t, repo.Create(ctx, poll))

	require.NoError(t, repo.CastVote(ctx, poll.ID, "a", 0))
	require.NoError(t, repo.CastVote(ctx, poll.ID, "a", 2)) // overwrites
	require.NoError(t, repo.CastVote(ctx, poll.ID, "b", 2))
	require.NoError(t, repo.CastVote(ctx, poll.ID, "c", 1))

	assert.True(t, IsValidation(repo.CastVote(ctx, poll.ID, "d", 3)))

	removed, err := repo.RemoveVote(ctx, poll.ID, "a", 0)
	require.NoError(t, err)
	assert.False(t, removed, "stale option must not remove the current vote")

	results, err := repo.Tally(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, results)

	results, closed, err := repo.Finalize(ctx, poll)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, []int{0, 1, 2}, results)

	assert.ErrorIs(t, repo.CastVote(ctx, poll.ID, "e", 0), ErrPollClosed)

	results, closed, err = repo.Finalize(ctx, poll)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, []int{0, 1, 2}, results)

	stored, err := repo.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, []int{0, 1, 2}, stored.Results)

	_, err = repo.GetActiveByMessage(ctx, "300")
	assert.True(t, IsNotFound(err))

	byMsg, err := repo.GetByMessage(ctx, "100", "300")
	require.NoError(t, err)
	assert.Equal(t, poll.ID, byMsg.ID)
}

func TestPollRepository_ListDueSkipsPollsWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository(dbtest.Bun(t))
	now := time.Now().UTC()

	open := newPoll(time.Time{})
	expired := newPoll(now.Add(-time.Minute))
	require.NoError(t, repo.Create(ctx, open))
	require.NoError(t, repo.Create(ctx, expired))

	items, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, expired.ID, items[0].ID)
}

func TestPollRepository_CreateValidatesOptions(t *testing.T) {
	repo := NewPollRepository(dbtest.Bun(t))

	p := newPoll(time.Time{})
	p.Options = []string{"only one"}
	assert.True(t, IsValidation(repo.Create(context.Background(), p)))
}

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(dbtest.Bun(t))
	due := time.Now().UTC().Add(48 * time.Hour)

	low := &models.Task{UserID: "1", GuildID: "100", Title: "low", Priority: models.PriorityLow}
	highLater := &models.Task{UserID: "1", GuildID: "100", Title: "high later", Priority: models.PriorityHigh, DueAt: due.Add(time.Hour)}
	highSoon := &models.Task{UserID: "1", GuildID: "100", Title: "high soon", Priority: models.PriorityHigh, DueAt: due}
	medium := &models.Task{UserID: "1", GuildID: "100", Title: "medium"}
	for _, task := range []*models.Task{low, highLater, highSoon, medium} {
		require.NoError(t, repo.Create(ctx, task))
	}
	assert.Equal(t, models.PriorityMedium, medium.Priority)

	tasks, err := repo.List(ctx, "1", "100", TaskFilter{Status: TaskFilterAll})
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, []string{"high soon", "high later", "medium", "low"},
		[]string{tasks[0].Title, tasks[1].Title, tasks[2].Title, tasks[3].Title})

	n, err := repo.CountOpen(ctx, "1", "100")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	done, err := repo.Complete(ctx, low.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, done)
	done, err = repo.Complete(ctx, low.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, done)

	low.Title = "renamed"
	assert.True(t, errors.Is(repo.Update(ctx, low, "title"), ErrTaskCompleted))

	medium.Title = "medium renamed"
	require.NoError(t, repo.Update(ctx, medium, "title"))
	got, err := repo.GetOwned(ctx, medium.ID, "1", "100")
	require.NoError(t, err)
	assert.Equal(t, "medium renamed", got.Title)

	_, err = repo.GetOwned(ctx, medium.ID, "2", "100")
	assert.True(t, IsNotFound(err))

	pending, err := repo.List(ctx, "1", "100", TaskFilter{Status: TaskFilterPending, Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, repo.Delete(ctx, medium.ID))
	assert.True(t, IsNotFound(repo.Delete(ctx, medium.ID)))
}

func TestLoadOverview(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Bun(t)
	countdowns := NewCountdownRepository(db)
	reminders := NewReminderRepository(db)
	messages := NewScheduledMessageRepository(db)
	polls := NewPollRepository(db)

	require.NoError(t, reminders.Create(ctx, newReminder("1", time.Now().Add(time.Hour))))
	require.NoError(t, polls.Create(ctx, newPoll(time.Time{})))
	require.NoError(t, countdowns.Create(ctx, &models.Countdown{
		GuildID: "100", ChannelID: "200", AuthorID: "1", Title: "launch", TargetAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, countdowns.Create(ctx, &models.Countdown{
		GuildID: "999", ChannelID: "200", AuthorID: "1", Title: "elsewhere", TargetAt: time.Now().Add(time.Hour),
	}))

	o, err := LoadOverview(ctx, "100", countdowns, reminders, messages, polls)
	require.NoError(t, err)
	assert.Equal(t, Overview{Countdowns: 1, Reminders: 1, ScheduledMessages: 0, Polls: 1}, o)
	assert.Equal(t, 3, o.Total())
}

func TestPollRepository_RejectsVotesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository(dbtest.Bun(t)).(*pollRepository)

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	poll := newPoll(now.Add(10 * time.Minute))
	require.NoError(t, repo.Create(ctx, poll))
	require.NoError(t, repo.CastVote(ctx, poll.ID, "early", 0))

	// Expiry passed but no sweep has closed the poll yet.
	now = now.Add(10 * time.Minute)
	assert.ErrorIs(t, repo.CastVote(ctx, poll.ID, "late", 1), ErrPollClosed)
	assert.ErrorIs(t, repo.CastVote(ctx, poll.ID, "early", 2), ErrPollClosed, "a late change must not move an earlier vote")

	stored, err := repo.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)

	results, closed, err := repo.Finalize(ctx, stored)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, []int{1, 0, 0}, results)

	stored, err = repo.GetByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, []int{1, 0, 0}, stored.Results)
	assert.True(t, now.Equal(stored.ClosedAt), "closed at %s", stored.ClosedAt)
}

func TestPollRepository_FinalizeConcurrentWithVotes(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository(dbtest.Bun(t))

	poll := newPoll(time.Time{})
	require.NoError(t, repo.Create(ctx, poll))

	const voters = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	wg.Add(voters)
	for i := 0; i < voters; i++ {
		i := i
		go func() {
			defer wg.Done()
			err := repo.CastVote(ctx, poll.ID, fmt.Sprintf("voter-%d", i), i%3)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrPollClosed)
		}()
	}

	results, closed, err := repo.Finalize(ctx, poll)
	require.NoError(t, err)
	require.True(t, closed)
	wg.Wait()

	total := 0
	for _, n := range results {
		total += n
	}
	assert.Equal(t, accepted, total, "every accepted vote is counted and no vote lands after the close")

	after, err := repo.Tally(ctx, poll)
	require.NoError(t, err)
	assert.Equal(t, results, after)
}
