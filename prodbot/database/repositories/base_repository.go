package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/config"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

// BaseRepository provides common repository functionality
type BaseRepository struct {
	db             *bun.DB
	defaultTimeout time.Duration
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *bun.DB) *BaseRepository {
	return &BaseRepository{
		db:             db,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// StoreError wraps any persistence failure.
type StoreError struct {
	Operation string
	Entity    string
	Err       error
}

func (se *StoreError) Error() string {
	return fmt.Sprintf("store error during %s for %s: %v", se.Operation, se.Entity, se.Err)
}

func (se *StoreError) Unwrap() error {
	return se.Err
}

// NotFoundError represents an entity not found error
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", nfe.Entity, nfe.ID)
}

// ValidationError is returned before anything touches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// WithTimeout creates a context with the default timeout
func (br *BaseRepository) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, br.defaultTimeout)
}

// Transaction executes a function within a database transaction
func (br *BaseRepository) Transaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := br.WithTimeout(ctx)
	defer cancel()

	return br.db.RunInTx(timeoutCtx, nil, fn)
}

// HandleError standardizes error handling across repositories
func (br *BaseRepository) HandleError(operation, entity string, err error) error {
	return br.HandleErrorWithID(operation, entity, "unknown", err)
}

// HandleErrorWithID standardizes error handling with specific ID
func (br *BaseRepository) HandleErrorWithID(operation, entity string, id interface{}, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}

	return &StoreError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// ValidateRequired checks if required fields are present
func (br *BaseRepository) ValidateRequired(fields map[string]interface{}) error {
	for field, value := range fields {
		if value == nil {
			return &ValidationError{Field: field, Message: "is required"}
		}

		switch v := value.(type) {
		case string:
			if v == "" {
				return &ValidationError{Field: field, Message: "cannot be empty"}
			}
		case time.Time:
			if v.IsZero() {
				return &ValidationError{Field: field, Message: "is required"}
			}
		}
	}
	return nil
}

// selectByID loads a single row into model by primary key.
func (br *BaseRepository) selectByID(ctx context.Context, entity string, model interface{}, id int64) error {
	ctx, cancel := br.WithTimeout(ctx)
	defer cancel()

	err := br.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx)
	return br.HandleErrorWithID("get", entity, id, err)
}

// markTerminal moves an active row to a terminal status. Rows that are
// already terminal are left untouched and no error is returned.
func (br *BaseRepository) markTerminal(ctx context.Context, entity, table, endedColumn string, id int64, status models.Status, at time.Time) error {
	if !status.Valid() || !status.Terminal() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a terminal status", status)}
	}

	ctx, cancel := br.WithTimeout(ctx)
	defer cancel()

	res, err := br.db.NewUpdate().
		Table(table).
		Set("status = ?", status).
		Set("? = ?", bun.Ident(endedColumn), dbTime(at)).
		Where("id = ?", id).
		Where("status = ?", models.StatusActive).
		Exec(ctx)
	if err != nil {
		return br.HandleErrorWithID("mark_terminal", entity, id, err)
	}

	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}
	return br.ensureExists(ctx, entity, table, id)
}

func (br *BaseRepository) ensureExists(ctx context.Context, entity, table string, id int64) error {
	exists, err := br.db.NewSelect().Table(table).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return br.HandleErrorWithID("exists", entity, id, err)
	}
	if !exists {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func (br *BaseRepository) count(ctx context.Context, entity string, query *bun.SelectQuery) (int, error) {
	ctx, cancel := br.WithTimeout(ctx)
	defer cancel()

	n, err := query.Count(ctx)
	return n, br.HandleError("count", entity, err)
}

// ActiveFilter narrows ListActive. Empty fields match everything.
type ActiveFilter struct {
	GuildID string
	UserID  string
}

// dbTime normalizes timestamps before they are stored or compared. SQLite
// compares them as text, so every value must share the same zone and precision.
func dbTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
