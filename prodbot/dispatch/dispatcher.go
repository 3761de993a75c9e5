package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/disgoorg/productivity-bot/prodbot/notify"
	"github.com/disgoorg/snowflake/v2"
)

const (
	FamilyCountdowns        = "countdowns"
	FamilyReminders         = "reminders"
	FamilyScheduledMessages = "scheduled_messages"
	FamilyPolls             = "polls"
)

// errStaleTarget marks an item whose channel, message or user is gone.
var errStaleTarget = errors.New("stale target")

type Repositories struct {
	Countdowns        repositories.CountdownRepository
	Reminders         repositories.ReminderRepository
	ScheduledMessages repositories.ScheduledMessageRepository
	Polls             repositories.PollRepository
}

// PassResult summarizes one sweep pass.
type PassResult struct {
	Family    string
	Listed    int
	Processed int
	Failed    int
	Orphaned  int
	Stopped   bool // the pass ended early because of shutdown
}

// Dispatcher runs the per-family state machines over due items. It keeps no
// state between passes: every pass re-reads the store.
type Dispatcher struct {
	repos       Repositories
	sink        notify.Sink
	now         func() time.Time
	itemTimeout time.Duration
}

type Option func(*Dispatcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithItemTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.itemTimeout = timeout
		}
	}
}

func New(repos Repositories, sink notify.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repos:       repos,
		sink:        sink,
		now:         time.Now,
		itemTimeout: config.DefaultItemTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Passes maps each family to its sweep function.
func (d *Dispatcher) Passes() map[string]func(context.Context) (PassResult, error) {
	return map[string]func(context.Context) (PassResult, error){
		FamilyCountdowns:        d.SweepCountdowns,
		FamilyReminders:         d.SweepReminders,
		FamilyScheduledMessages: d.SweepScheduledMessages,
		FamilyPolls:             d.SweepPolls,
	}
}

// runPass processes items in order. ctx is checked between items only: an
// item that has started runs to completion on a context detached from ctx,
// bounded by the item timeout.
func runPass[T any](ctx context.Context, d *Dispatcher, family string, items []T, idOf func(T) int64, handle func(context.Context, T) error) PassResult {
	res := PassResult{Family: family, Listed: len(items)}

	for _, item := range items {
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}

		id := idOf(item)
		err := runItem(ctx, d, family, id, item, handle)
		switch {
		case err == nil:
			res.Processed++
		case errors.Is(err, errStaleTarget):
			res.Processed++
			res.Orphaned++
		default:
			res.Failed++
			slog.Error("Failed to dispatch item",
				slog.String("type", "sweep"),
				slog.String("family", family),
				slog.Int64("item_id", id),
				slog.Any("error", err),
			)
		}
	}

	return res
}

func runItem[T any](ctx context.Context, d *Dispatcher, family string, id int64, item T, handle func(context.Context, T) error) (err error) {
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.itemTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while dispatching %s #%d: %v", family, id, r)
		}
	}()

	return handle(itemCtx, item)
}

// orphan ends an item whose target vanished.
func orphan(ctx context.Context, family string, id int64, reason string, mark func(context.Context, int64, models.Status) error) error {
	slog.Warn("Target gone, orphaning item",
		slog.String("type", "sweep"),
		slog.String("family", family),
		slog.Int64("item_id", id),
		slog.String("reason", reason),
	)
	if err := mark(ctx, id, models.StatusOrphaned); err != nil {
		return fmt.Errorf("failed to orphan %s #%d: %w", family, id, err)
	}
	return errStaleTarget
}

// parseID reads a stored Discord ID. Empty and malformed IDs are treated as
// missing targets.
func parseID(raw string) (snowflake.ID, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.Parse(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// resolveChannel reports (id, true, nil) when the channel exists.
func (d *Dispatcher) resolveChannel(ctx context.Context, raw string) (snowflake.ID, bool, error) {
	id, ok := parseID(raw)
	if !ok {
		return 0, false, nil
	}
	found, err := d.sink.ResolveChannel(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return id, found, nil
}
