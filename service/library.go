package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/store"
	"github.com/kevinaaaquil/readlog/backend/utils"
)

// AddBookInput is the catalog metadata a client submits when adding a book.
// It is only used to create the cached book; an existing cache row is never overwritten.
type AddBookInput struct {
	BookID        string
	Title         string
	Authors       []string
	PublishedDate string
	Publisher     string
	Description   string
	Thumbnail     string
	PageCount     int
	Categories    []string
	InfoLink      string
	ISBN          string
}

type LibraryManager struct {
	store  LibraryStore
	covers *CoverMirror // nil when S3 is not configured
	log    *zap.Logger
	now    func() time.Time
}

func NewLibraryManager(s LibraryStore, covers *CoverMirror, log *zap.Logger) *LibraryManager {
	return &LibraryManager{store: s, covers: covers, log: log, now: time.Now}
}

// Add caches the book if needed and creates a fresh library entry for it.
func (l *LibraryManager) Add(ctx context.Context, userID primitive.ObjectID, in AddBookInput) (*models.UserBook, error) {
	in.BookID = strings.TrimSpace(in.BookID)
	in.Title = strings.TrimSpace(in.Title)
	if in.BookID == "" || in.Title == "" {
		return nil, apperr.Validation("book id and title are required")
	}
	if in.PageCount < 0 {
		return nil, apperr.Validation("page_count cannot be negative")
	}
	isbn, err := normalizeISBN(in.ISBN)
	if err != nil {
		return nil, err
	}

	existing, err := l.store.UserBook(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("lookup entry: %w", err)
	}
	if existing != nil {
		return nil, apperr.ErrAlreadyInLibrary
	}

	now := l.now().UTC()
	book := &models.Book{
		GoogleID:      in.BookID,
		Title:         in.Title,
		Authors:       in.Authors,
		PublishedDate: in.PublishedDate,
		Publisher:     in.Publisher,
		Description:   in.Description,
		Thumbnail:     in.Thumbnail,
		PageCount:     in.PageCount,
		Categories:    in.Categories,
		InfoLink:      in.InfoLink,
		ISBN:          isbn,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := l.store.InsertBookIfAbsent(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("cache book: %w", err)
	}
	if l.covers != nil {
		l.mirrorIfMissing(ctx, book, created)
	}

	entry := &models.UserBook{
		UserID:      userID,
		BookID:      in.BookID,
		CurrentPage: 0,
		Status:      models.StatusReading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := l.store.InsertUserBook(ctx, entry)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrAlreadyInLibrary
	}
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = id
	l.log.Info("book added to library",
		zap.String("user_id", userID.Hex()), zap.String("book_id", in.BookID), zap.Bool("book_cached", created))
	return entry, nil
}

// Remove deletes the library entry and every reading log recorded for it.
func (l *LibraryManager) Remove(ctx context.Context, userID primitive.ObjectID, bookID string) error {
	deleted, err := l.store.DeleteUserBook(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if !deleted {
		return apperr.ErrNotInLibrary
	}
	n, err := l.store.DeleteLogsForBook(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("delete logs: %w", err)
	}
	l.log.Info("book removed from library",
		zap.String("user_id", userID.Hex()), zap.String("book_id", bookID), zap.Int64("logs_deleted", n))
	return nil
}

// Summary lists the user's library, newest entry first. Entries whose book
// is missing from the cache are skipped.
func (l *LibraryManager) Summary(ctx context.Context, userID primitive.ObjectID) ([]models.LibrarySummary, error) {
	entries, err := l.store.ListUserBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.BookID)
	}
	books, err := l.store.BooksByGoogleIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	byID := make(map[string]models.Book, len(books))
	for _, b := range books {
		byID[b.GoogleID] = b
	}

	out := make([]models.LibrarySummary, 0, len(entries))
	for _, e := range entries {
		b, ok := byID[e.BookID]
		if !ok {
			l.log.Warn("library entry without cached book",
				zap.String("user_id", userID.Hex()), zap.String("book_id", e.BookID))
			continue
		}
		out = append(out, models.LibrarySummary{
			BookID:             e.BookID,
			Title:              b.Title,
			Thumbnail:          b.Thumbnail,
			TotalPages:         b.PageCount,
			CurrentPage:        e.CurrentPage,
			ProgressPercentage: Progress(e.CurrentPage, b.PageCount),
			Status:             e.Status,
			LastReadDate:       e.LastReadDate,
		})
	}
	return out, nil
}

func (l *LibraryManager) Detail(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.LibraryDetail, error) {
	entry, book, err := l.entryAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return &models.LibraryDetail{
		Book:               *book,
		Entry:              *entry,
		ProgressPercentage: Progress(entry.CurrentPage, book.PageCount),
	}, nil
}

// SetPageCount corrects the cached book's total page count.
func (l *LibraryManager) SetPageCount(ctx context.Context, userID primitive.ObjectID, bookID string, total int) (*models.Book, error) {
	if total < 0 {
		return nil, apperr.Validation("page_count cannot be negative")
	}
	return l.UpdateBook(ctx, userID, bookID, models.BookPatch{PageCount: &total})
}

// UpdateBook edits the cached metadata of a book in the caller's library.
func (l *LibraryManager) UpdateBook(ctx context.Context, userID primitive.ObjectID, bookID string, patch models.BookPatch) (*models.Book, error) {
	if patch.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.Validation("title cannot be empty")
	}
	if patch.PageCount != nil && *patch.PageCount < 0 {
		return nil, apperr.Validation("page_count cannot be negative")
	}
	if patch.ISBN != nil {
		isbn, err := normalizeISBN(*patch.ISBN)
		if err != nil {
			return nil, err
		}
		patch.ISBN = &isbn
	}

	_, before, err := l.entryAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	matched, err := l.store.UpdateBook(ctx, bookID, patch)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	if !matched {
		return nil, apperr.NotFound("book not found")
	}
	after, err := l.store.BookByGoogleID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("reload book: %w", err)
	}
	if after == nil {
		return nil, apperr.NotFound("book not found")
	}
	if l.covers != nil && after.Thumbnail != before.Thumbnail {
		l.covers.Mirror(ctx, after)
	}
	return after, nil
}

// normalizeISBN strips separators from a user-supplied ISBN. Blank stays blank.
func normalizeISBN(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	isbn := utils.SanitizeISBN(raw)
	if !utils.IsValidISBN(isbn) {
		return "", apperr.Validation("isbn must have 10 or 13 digits")
	}
	return isbn, nil
}

// MarkComplete jumps to the last page and marks the entry completed.
func (l *LibraryManager) MarkComplete(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.UserBook, error) {
	_, book, err := l.entryAndBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	now := l.now().UTC()
	status := models.StatusCompleted
	return l.patchEntry(ctx, userID, bookID, models.UserBookPatch{
		CurrentPage:  &book.PageCount,
		Status:       &status,
		LastReadDate: &now,
		UpdatedAt:    now,
	})
}

func (l *LibraryManager) SetStatus(ctx context.Context, userID primitive.ObjectID, bookID, status string) (*models.UserBook, error) {
	if !slices.Contains(models.ValidStatuses, status) {
		return nil, apperr.ValidationWithDetails("invalid status", map[string]any{"allowed": models.ValidStatuses})
	}
	return l.patchEntry(ctx, userID, bookID, models.UserBookPatch{Status: &status, UpdatedAt: l.now().UTC()})
}

// Cover opens the mirrored cover image of a cached book.
func (l *LibraryManager) Cover(ctx context.Context, bookID string) (io.ReadCloser, string, error) {
	book, err := l.store.BookByGoogleID(ctx, bookID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup book: %w", err)
	}
	if book == nil || book.CoverS3Key == "" || l.covers == nil {
		return nil, "", apperr.NotFound("cover not found")
	}
	return l.covers.Open(ctx, book.CoverS3Key)
}

// mirrorIfMissing copies the cover of a book that has none yet. Books cached
// by a search arrive here without one.
func (l *LibraryManager) mirrorIfMissing(ctx context.Context, book *models.Book, created bool) {
	if !created {
		cached, err := l.store.BookByGoogleID(ctx, book.GoogleID)
		if err != nil || cached == nil {
			l.log.Warn("cover check failed", zap.String("book_id", book.GoogleID), zap.Error(err))
			return
		}
		book = cached
	}
	if book.CoverS3Key == "" {
		l.covers.Mirror(ctx, book)
	}
}

func (l *LibraryManager) entryAndBook(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.UserBook, *models.Book, error) {
	entry, err := l.store.UserBook(ctx, userID, bookID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup entry: %w", err)
	}
	if entry == nil {
		return nil, nil, apperr.NotFound("book not in library")
	}
	book, err := l.store.BookByGoogleID(ctx, bookID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup book: %w", err)
	}
	if book == nil {
		return nil, nil, apperr.NotFound("book not found")
	}
	return entry, book, nil
}

func (l *LibraryManager) patchEntry(ctx context.Context, userID primitive.ObjectID, bookID string, patch models.UserBookPatch) (*models.UserBook, error) {
	matched, err := l.store.UpdateUserBook(ctx, userID, bookID, patch)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if !matched {
		return nil, apperr.NotFound("book not in library")
	}
	entry, err := l.store.UserBook(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("reload entry: %w", err)
	}
	if entry == nil {
		return nil, apperr.NotFound("book not in library")
	}
	return entry, nil
}

// Progress is current/total as a percentage rounded to one decimal; 0 when total is not positive.
func Progress(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(total)*1000) / 10
}
