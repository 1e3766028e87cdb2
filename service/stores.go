package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kevinaaaquil/readlog/backend/models"
)

// UserStore is the persistence the session manager needs. *store.DB implements it.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	SetRefreshTokenHash(ctx context.Context, id primitive.ObjectID, hash string) error
	SwapRefreshTokenHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) (bool, error)
	ClearRefreshTokenHash(ctx context.Context, id primitive.ObjectID) error
}

type BookStore interface {
	BookByGoogleID(ctx context.Context, googleID string) (*models.Book, error)
	BooksByGoogleIDs(ctx context.Context, ids []string) ([]models.Book, error)
	InsertBookIfAbsent(ctx context.Context, book *models.Book) (bool, error)
	UpdateBook(ctx context.Context, googleID string, patch models.BookPatch) (bool, error)
	SetBookCoverKey(ctx context.Context, googleID, key string) error
}

type EntryStore interface {
	UserBook(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.UserBook, error)
	InsertUserBook(ctx context.Context, ub *models.UserBook) (primitive.ObjectID, error)
	ListUserBooks(ctx context.Context, userID primitive.ObjectID) ([]models.UserBook, error)
	UpdateUserBook(ctx context.Context, userID primitive.ObjectID, bookID string, patch models.UserBookPatch) (bool, error)
	DeleteUserBook(ctx context.Context, userID primitive.ObjectID, bookID string) (bool, error)
}

type LogStore interface {
	LogByDate(ctx context.Context, userID primitive.ObjectID, bookID string, date time.Time) (*models.ReadingLog, error)
	LogByID(ctx context.Context, userID, id primitive.ObjectID) (*models.ReadingLog, error)
	LatestLog(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.ReadingLog, error)
	InsertLog(ctx context.Context, l *models.ReadingLog) (primitive.ObjectID, error)
	MergeLog(ctx context.Context, id primitive.ObjectID, m models.LogMerge) error
	UpdateLog(ctx context.Context, id primitive.ObjectID, u models.LogUpdate) error
	DeleteLog(ctx context.Context, userID, id primitive.ObjectID) (bool, error)
	DeleteLogsForBook(ctx context.Context, userID primitive.ObjectID, bookID string) (int64, error)
	CountLogs(ctx context.Context, userID primitive.ObjectID, bookID string) (int64, error)
	Logs(ctx context.Context, userID primitive.ObjectID, bookID string) ([]models.ReadingLog, error)
}

// LibraryStore covers books, entries and logs; removing an entry cascades to its logs.
type LibraryStore interface {
	BookStore
	EntryStore
	LogStore
}

// LedgerStore is what the reading ledger touches.
type LedgerStore interface {
	EntryStore
	LogStore
}
