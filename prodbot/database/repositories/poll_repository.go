package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/uptrace/bun"
)

const pollEntity = "poll"

// ErrPollClosed is returned when a vote targets a poll that no longer accepts votes.
var ErrPollClosed = errors.New("poll is closed")

type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	GetByID(ctx context.Context, id int64) (*models.Poll, error)
	GetActiveByMessage(ctx context.Context, messageID string) (*models.Poll, error)
	GetByMessage(ctx context.Context, guildID, messageID string) (*models.Poll, error)
	// ListDue returns active polls whose expiry has passed. Polls without expiry are never due.
	ListDue(ctx context.Context, now time.Time) ([]*models.Poll, error)
	ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Poll, error)
	MarkTerminal(ctx context.Context, id int64, status models.Status) error
	CastVote(ctx context.Context, pollID int64, voterID string, option int) error
	RemoveVote(ctx context.Context, pollID int64, voterID string, option int) (bool, error)
	Tally(ctx context.Context, poll *models.Poll) ([]int, error)
	// Finalize closes the poll and stores its tally in one transaction. It
	// reports whether this call did the closing; later calls return the stored
	// results untouched.
	Finalize(ctx context.Context, poll *models.Poll) (results []int, closed bool, err error)
	CountActive(ctx context.Context, filter ActiveFilter) (int, error)
}

type pollRepository struct {
	*BaseRepository
	now func() time.Time
}

func NewPollRepository(db *bun.DB) PollRepository {
	return &pollRepository{BaseRepository: NewBaseRepository(db), now: time.Now}
}

func (r *pollRepository) Create(ctx context.Context, poll *models.Poll) error {
	if err := r.ValidateRequired(map[string]interface{}{
		"guild_id":   poll.GuildID,
		"channel_id": poll.ChannelID,
		"author_id":  poll.AuthorID,
		"title":      poll.Title,
	}); err != nil {
		return err
	}
	if len(poll.Options) < 2 || len(poll.Options) > 10 {
		return &ValidationError{Field: "options", Message: fmt.Sprintf("need between 2 and 10 options, got %d", len(poll.Options))}
	}

	poll.ExpiresAt = dbTime(poll.ExpiresAt)
	poll.Status = models.StatusActive
	poll.Results = nil
	poll.CreatedAt = dbTime(time.Now())

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().Model(poll).Exec(ctx)
	return r.HandleError("create", pollEntity, err)
}

func (r *pollRepository) GetByID(ctx context.Context, id int64) (*models.Poll, error) {
	poll := new(models.Poll)
	if err := r.selectByID(ctx, pollEntity, poll, id); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) GetActiveByMessage(ctx context.Context, messageID string) (*models.Poll, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	poll := new(models.Poll)
	err := r.db.NewSelect().
		Model(poll).
		Where("message_id = ?", messageID).
		Where("status = ?", models.StatusActive).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get_by_message", pollEntity, messageID, err)
	}
	return poll, nil
}

func (r *pollRepository) GetByMessage(ctx context.Context, guildID, messageID string) (*models.Poll, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	poll := new(models.Poll)
	err := r.db.NewSelect().
		Model(poll).
		Where("guild_id = ?", guildID).
		Where("message_id = ?", messageID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get_by_message", pollEntity, messageID, err)
	}
	return poll, nil
}

func (r *pollRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Poll, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var polls []*models.Poll
	err := r.db.NewSelect().
		Model(&polls).
		Where("status = ?", models.StatusActive).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", dbTime(now)).
		Order("expires_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_due", pollEntity, err)
	}
	return polls, nil
}

func (r *pollRepository) ListActive(ctx context.Context, filter ActiveFilter) ([]*models.Poll, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var polls []*models.Poll
	err := r.activeQuery(filter).
		Model(&polls).
		Order("expires_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_active", pollEntity, err)
	}
	return polls, nil
}

func (r *pollRepository) CountActive(ctx context.Context, filter ActiveFilter) (int, error) {
	return r.count(ctx, pollEntity, r.activeQuery(filter).Model((*models.Poll)(nil)))
}

func (r *pollRepository) activeQuery(filter ActiveFilter) *bun.SelectQuery {
	q := r.db.NewSelect().Where("status = ?", models.StatusActive)
	if filter.GuildID != "" {
		q = q.Where("guild_id = ?", filter.GuildID)
	}
	if filter.UserID != "" {
		q = q.Where("author_id = ?", filter.UserID)
	}
	return q
}

func (r *pollRepository) MarkTerminal(ctx context.Context, id int64, status models.Status) error {
	return r.markTerminal(ctx, pollEntity, "polls", "closed_at", id, status, time.Now())
}

func (r *pollRepository) CastVote(ctx context.Context, pollID int64, voterID string, option int) error {
	if voterID == "" {
		return &ValidationError{Field: "voter_id", Message: "cannot be empty"}
	}

	poll, err := r.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	now := dbTime(r.now())
	if !poll.Open(now) {
		return ErrPollClosed
	}
	if option < 0 || option >= len(poll.Options) {
		return &ValidationError{Field: "option", Message: fmt.Sprintf("option %d out of range", option+1)}
	}

	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		// Locks the poll row until commit, so Finalize never counts around an
		// in-flight vote and a vote never lands after the close.
		res, err := tx.NewUpdate().
			Table("polls").
			Set("status = status").
			Where("id = ?", pollID).
			Where("status = ?", models.StatusActive).
			Where("(expires_at IS NULL OR expires_at > ?)", now).
			Exec(ctx)
		if err != nil {
			return r.HandleErrorWithID("cast_vote", pollEntity, pollID, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrPollClosed
		}

		vote := &models.PollVote{
			PollID:      pollID,
			VoterID:     voterID,
			OptionIndex: option,
			VotedAt:     now,
		}
		_, err = tx.NewInsert().
			Model(vote).
			On("CONFLICT (poll_id, voter_id) DO UPDATE").
			Set("option_index = EXCLUDED.option_index").
			Set("voted_at = EXCLUDED.voted_at").
			Exec(ctx)
		return r.HandleErrorWithID("cast_vote", pollEntity, pollID, err)
	})
}

// RemoveVote deletes the voter's vote only if it still points at option.
func (r *pollRepository) RemoveVote(ctx context.Context, pollID int64, voterID string, option int) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.PollVote)(nil)).
		Where("poll_id = ?", pollID).
		Where("voter_id = ?", voterID).
		Where("option_index = ?", option).
		Exec(ctx)
	if err != nil {
		return false, r.HandleErrorWithID("remove_vote", pollEntity, pollID, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *pollRepository) Tally(ctx context.Context, poll *models.Poll) ([]int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	results, err := tally(ctx, r.db, poll)
	if err != nil {
		return nil, r.HandleErrorWithID("tally", pollEntity, poll.ID, err)
	}
	return results, nil
}

// tally counts votes per option index, in option order.
func tally(ctx context.Context, db bun.IDB, poll *models.Poll) ([]int, error) {
	var rows []struct {
		OptionIndex int `bun:"option_index"`
		Votes       int `bun:"votes"`
	}
	err := db.NewSelect().
		Model((*models.PollVote)(nil)).
		Column("option_index").
		ColumnExpr("COUNT(*) AS votes").
		Where("poll_id = ?", poll.ID).
		Group("option_index").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	results := make([]int, len(poll.Options))
	for _, row := range rows {
		if row.OptionIndex >= 0 && row.OptionIndex < len(results) {
			results[row.OptionIndex] = row.Votes
		}
	}
	return results, nil
}

func (r *pollRepository) Finalize(ctx context.Context, poll *models.Poll) (results []int, closed bool, err error) {
	err = r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Table("polls").
			Set("status = ?", models.StatusCompleted).
			Set("closed_at = ?", dbTime(r.now())).
			Where("id = ?", poll.ID).
			Where("status = ?", models.StatusActive).
			Exec(ctx)
		if err != nil {
			return r.HandleErrorWithID("finalize", pollEntity, poll.ID, err)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			stored := new(models.Poll)
			if err = tx.NewSelect().Model(stored).Where("id = ?", poll.ID).Scan(ctx); err != nil {
				return r.HandleErrorWithID("finalize", pollEntity, poll.ID, err)
			}
			results = stored.Results
			return nil
		}

		if results, err = tally(ctx, tx, poll); err != nil {
			return r.HandleErrorWithID("finalize", pollEntity, poll.ID, err)
		}
		_, err = tx.NewUpdate().
			Model(&models.Poll{ID: poll.ID, Results: results}).
			Column("results").
			WherePK().
			Exec(ctx)
		if err != nil {
			return r.HandleErrorWithID("finalize", pollEntity, poll.ID, err)
		}
		closed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return results, closed, nil
}
