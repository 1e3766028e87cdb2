package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/store"
)

// LogInput is one reading session. A nil ReadingDate means today (UTC).
type LogInput struct {
	BookID             string
	ReadingDate        *time.Time
	PagesRead          int
	CurrentPage        int
	ReadingTimeMinutes int
	Notes              string
}

func (in LogInput) validate() error {
	switch {
	case in.PagesRead <= 0:
		return apperr.Validation("pages_read must be greater than 0")
	case in.CurrentPage < 0:
		return apperr.Validation("current_page cannot be negative")
	case in.ReadingTimeMinutes < 0:
		return apperr.Validation("reading_time_minutes cannot be negative")
	}
	return nil
}

// ReadingLedger keeps the per-day reading logs and re-derives the library
// entry's progress from them after every change. The entry's current_page
// always equals the current_page of the log with the latest reading_date,
// or 0 when there are none.
type ReadingLedger struct {
	store LedgerStore
	log   *zap.Logger
	now   func() time.Time
}

func NewReadingLedger(s LedgerStore, log *zap.Logger) *ReadingLedger {
	return &ReadingLedger{store: s, log: log, now: time.Now}
}

// AddOrMergeLog records a session, folding it into the existing log when one
// exists for the same day.
func (r *ReadingLedger) AddOrMergeLog(ctx context.Context, userID primitive.ObjectID, in LogInput) (*models.ReadingLog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	entry, err := r.store.UserBook(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("lookup entry: %w", err)
	}
	if entry == nil {
		return nil, apperr.ErrNotInLibrary
	}
	if in.CurrentPage < entry.CurrentPage {
		return nil, apperr.ErrRegressingProgress
	}

	now := r.now().UTC()
	date := models.DateOnly(now)
	if in.ReadingDate != nil {
		date = models.DateOnly(*in.ReadingDate)
	}

	prior, err := r.store.CountLogs(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}

	existing, err := r.store.LogByDate(ctx, userID, in.BookID, date)
	if err != nil {
		return nil, fmt.Errorf("lookup log: %w", err)
	}
	if existing == nil {
		_, err = r.store.InsertLog(ctx, &models.ReadingLog{
			UserID:             userID,
			BookID:             in.BookID,
			ReadingDate:        date,
			PagesRead:          in.PagesRead,
			CurrentPage:        in.CurrentPage,
			ReadingTimeMinutes: in.ReadingTimeMinutes,
			Notes:              in.Notes,
			CreatedAt:          now,
		})
		if errors.Is(err, store.ErrDuplicate) {
			// lost an insert race for the same day; merge into the winner
			existing, err = r.store.LogByDate(ctx, userID, in.BookID, date)
			if err == nil && existing == nil {
				err = fmt.Errorf("log for %s vanished after duplicate insert", date.Format(time.DateOnly))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("insert log: %w", err)
		}
	}
	if existing != nil {
		err = r.store.MergeLog(ctx, existing.ID, models.LogMerge{
			PagesRead:          in.PagesRead,
			CurrentPage:        in.CurrentPage,
			ReadingTimeMinutes: in.ReadingTimeMinutes,
			Notes:              in.Notes,
			UpdatedAt:          now,
		})
		if err != nil {
			return nil, fmt.Errorf("merge log: %w", err)
		}
	}

	patch := models.UserBookPatch{LastReadDate: &now, UpdatedAt: now}
	if prior == 0 {
		patch.StartDate = &date
	}
	if err := r.reconcile(ctx, userID, in.BookID, patch); err != nil {
		return nil, err
	}

	saved, err := r.store.LogByDate(ctx, userID, in.BookID, date)
	if err != nil {
		return nil, fmt.Errorf("reload log: %w", err)
	}
	r.log.Debug("reading log recorded",
		zap.String("user_id", userID.Hex()), zap.String("book_id", in.BookID),
		zap.Time("reading_date", date), zap.Bool("merged", existing != nil))
	return saved, nil
}

// ModifyLog rewrites the log recorded on originalDate, optionally moving it to
// in.ReadingDate. Moving onto a day that already has a log is a conflict.
func (r *ReadingLedger) ModifyLog(ctx context.Context, userID primitive.ObjectID, originalDate time.Time, in LogInput) (*models.ReadingLog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	entry, err := r.store.UserBook(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("lookup entry: %w", err)
	}
	if entry == nil {
		return nil, apperr.ErrNotInLibrary
	}

	originalDate = models.DateOnly(originalDate)
	current, err := r.store.LogByDate(ctx, userID, in.BookID, originalDate)
	if err != nil {
		return nil, fmt.Errorf("lookup log: %w", err)
	}
	if current == nil {
		return nil, apperr.NotFound("reading log not found")
	}

	newDate := originalDate
	if in.ReadingDate != nil {
		newDate = models.DateOnly(*in.ReadingDate)
	}
	if !newDate.Equal(originalDate) {
		taken, err := r.store.LogByDate(ctx, userID, in.BookID, newDate)
		if err != nil {
			return nil, fmt.Errorf("lookup log: %w", err)
		}
		if taken != nil {
			return nil, apperr.ErrConflict.WithMessage("a reading log already exists for " + newDate.Format(time.DateOnly))
		}
	}

	now := r.now().UTC()
	err = r.store.UpdateLog(ctx, current.ID, models.LogUpdate{
		ReadingDate:        newDate,
		PagesRead:          in.PagesRead,
		CurrentPage:        in.CurrentPage,
		ReadingTimeMinutes: in.ReadingTimeMinutes,
		Notes:              in.Notes,
		UpdatedAt:          now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrConflict.WithMessage("a reading log already exists for " + newDate.Format(time.DateOnly))
	}
	if err != nil {
		return nil, fmt.Errorf("update log: %w", err)
	}

	if err := r.reconcile(ctx, userID, in.BookID, models.UserBookPatch{LastReadDate: &now, UpdatedAt: now}); err != nil {
		return nil, err
	}
	return r.store.LogByID(ctx, userID, current.ID)
}

// RemoveLog deletes one log. The entry's progress is re-derived from what is
// left, or reset when the ledger is empty.
func (r *ReadingLedger) RemoveLog(ctx context.Context, userID, logID primitive.ObjectID) error {
	l, err := r.store.LogByID(ctx, userID, logID)
	if err != nil {
		return fmt.Errorf("lookup log: %w", err)
	}
	if l == nil {
		return apperr.NotFound("reading log not found")
	}
	deleted, err := r.store.DeleteLog(ctx, userID, logID)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	if !deleted {
		return apperr.NotFound("reading log not found")
	}

	latest, err := r.store.LatestLog(ctx, userID, l.BookID)
	if err != nil {
		return fmt.Errorf("latest log: %w", err)
	}
	patch := models.UserBookPatch{UpdatedAt: r.now().UTC()}
	if latest == nil {
		zero := 0
		patch.CurrentPage = &zero
		patch.ClearStartDate = true
		patch.ClearLastReadDate = true
	} else {
		patch.CurrentPage = &latest.CurrentPage
		patch.LastReadDate = &latest.ReadingDate
	}
	if _, err := r.store.UpdateUserBook(ctx, userID, l.BookID, patch); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

// ListLogs returns the ledger for a book, newest day first. Never nil.
func (r *ReadingLedger) ListLogs(ctx context.Context, userID primitive.ObjectID, bookID string) ([]models.ReadingLog, error) {
	logs, err := r.store.Logs(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if logs == nil {
		logs = []models.ReadingLog{}
	}
	return logs, nil
}

// reconcile sets the entry's current_page from the latest log, on top of patch.
func (r *ReadingLedger) reconcile(ctx context.Context, userID primitive.ObjectID, bookID string, patch models.UserBookPatch) error {
	latest, err := r.store.LatestLog(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("latest log: %w", err)
	}
	page := 0
	if latest != nil {
		page = latest.CurrentPage
	}
	patch.CurrentPage = &page
	if _, err := r.store.UpdateUserBook(ctx, userID, bookID, patch); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}
