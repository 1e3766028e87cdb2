package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reading statuses for a library entry.
const (
	StatusReading   = "reading"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
	StatusPaused    = "paused"
)

var ValidStatuses = []string{StatusReading, StatusCompleted, StatusAbandoned, StatusPaused}

// UserBook is a user's library entry for one catalog book.
type UserBook struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	BookID       string             `bson:"book_id" json:"book_id"` // Book.GoogleID
	CurrentPage  int                `bson:"current_page" json:"current_page"`
	Status       string             `bson:"status" json:"status"`
	StartDate    *time.Time         `bson:"start_date" json:"start_date"`         // date of the first log
	LastReadDate *time.Time         `bson:"last_read_date" json:"last_read_date"` // set by every log mutation
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserBookPatch describes a progress update. Nil pointers are left untouched;
// the Clear flags write null.
type UserBookPatch struct {
	CurrentPage       *int
	Status            *string
	StartDate         *time.Time
	ClearStartDate    bool
	LastReadDate      *time.Time
	ClearLastReadDate bool
	UpdatedAt         time.Time
}

// LibrarySummary is one row of a user's library overview.
type LibrarySummary struct {
	BookID             string     `json:"book_id"`
	Title              string     `json:"title"`
	Thumbnail          string     `json:"thumbnail,omitempty"`
	TotalPages         int        `json:"total_pages"`
	CurrentPage        int        `json:"current_page"`
	ProgressPercentage float64    `json:"progress_percentage"`
	Status             string     `json:"status"`
	LastReadDate       *time.Time `json:"last_read_date"`
}

// LibraryDetail combines a library entry with its catalog book.
type LibraryDetail struct {
	Book               Book     `json:"book"`
	Entry              UserBook `json:"entry"`
	ProgressPercentage float64  `json:"progress_percentage"`
}
