package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book is the cached copy of a catalog volume. GoogleID is the catalog-assigned id and never changes.
type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GoogleID      string             `bson:"google_id" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Authors       []string           `bson:"authors" json:"authors"`
	PublishedDate string             `bson:"published_date,omitempty" json:"published_date,omitempty"`
	Publisher     string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Thumbnail     string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	PageCount     int                `bson:"page_count" json:"page_count"`
	Categories    []string           `bson:"categories,omitempty" json:"categories,omitempty"`
	InfoLink      string             `bson:"info_link,omitempty" json:"info_link,omitempty"`
	ISBN          string             `bson:"isbn,omitempty" json:"isbn,omitempty"`
	CoverS3Key    string             `bson:"cover_s3_key,omitempty" json:"-"` // mirrored thumbnail, when S3 is configured
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// BookPatch holds the editable catalog fields. Nil fields are left untouched.
type BookPatch struct {
	Title       *string
	Authors     []string
	Publisher   *string
	Description *string
	Thumbnail   *string
	PageCount   *int
	Categories  []string
	ISBN        *string
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Authors == nil && p.Publisher == nil && p.Description == nil &&
		p.Thumbnail == nil && p.PageCount == nil && p.Categories == nil && p.ISBN == nil
}
