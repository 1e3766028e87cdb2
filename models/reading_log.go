package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadingLog is the ledger row for one (user, book, calendar day).
type ReadingLog struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	BookID             string             `bson:"book_id" json:"book_id"`
	ReadingDate        time.Time          `bson:"reading_date" json:"reading_date"` // midnight UTC
	PagesRead          int                `bson:"pages_read" json:"pages_read"`
	CurrentPage        int                `bson:"current_page" json:"current_page"`
	ReadingTimeMinutes int                `bson:"reading_time_minutes,omitempty" json:"reading_time_minutes,omitempty"`
	Notes              string             `bson:"notes" json:"notes"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          *time.Time         `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// LogMerge is folded into an existing log for the same day.
// PagesRead and ReadingTimeMinutes accumulate, CurrentPage overwrites,
// Notes overwrite only when non-empty.
type LogMerge struct {
	PagesRead          int
	CurrentPage        int
	ReadingTimeMinutes int
	Notes              string
	UpdatedAt          time.Time
}

// LogUpdate replaces the editable fields of a log in place.
type LogUpdate struct {
	ReadingDate        time.Time
	PagesRead          int
	CurrentPage        int
	ReadingTimeMinutes int
	Notes              string
	UpdatedAt          time.Time
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
