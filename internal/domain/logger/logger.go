package logger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

const defaultSlowThreshold = 500 * time.Millisecond

type QueryLogger struct {
	Operation string
	Query     string
	StartTime time.Time
}

func NewQueryLogger(operation, query string) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Query:     query,
		StartTime: time.Now(),
	}
}

func (l *QueryLogger) Log(err error, rowsAffected int64, slow time.Duration) {
	duration := time.Since(l.StartTime)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", l.Operation),
			slog.String("query", l.Query),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return
	}

	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("query", l.Query),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", rowsAffected),
	}
	if duration > slow {
		slog.Warn("Slow query", attrs...)
		return
	}
	slog.Debug("Query executed", attrs...)
}

// QueryHook feeds every bun query through QueryLogger.
type QueryHook struct {
	SlowThreshold time.Duration
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook() *QueryHook {
	return &QueryHook{SlowThreshold: defaultSlowThreshold}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	l := &QueryLogger{
		Operation: event.Operation(),
		Query:     event.Query,
		StartTime: event.StartTime,
	}

	var affected int64
	if event.Result != nil {
		affected, _ = event.Result.RowsAffected()
	}

	// A select that finds nothing is reported by the repository, not here.
	err := event.Err
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	l.Log(err, affected, h.SlowThreshold)
}
