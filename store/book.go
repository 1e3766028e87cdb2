package store

import (
	"context"

	"github.com/kevinaaaquil/readlog/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) BookByGoogleID(ctx context.Context, googleID string) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"google_id": googleID}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// BooksByGoogleIDs returns the cached books for ids, in no particular order.
func (db *DB) BooksByGoogleIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	cur, err := db.Books().Find(ctx, bson.M{"google_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// InsertBookIfAbsent caches book unless a book with the same google_id exists.
// An existing document is never modified. Reports whether a document was created.
func (db *DB) InsertBookIfAbsent(ctx context.Context, book *models.Book) (bool, error) {
	res, err := db.Books().UpdateOne(ctx,
		bson.M{"google_id": book.GoogleID},
		bson.M{"$setOnInsert": book},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can both miss and race on the unique index;
		// the loser finds the winner's document, which is what we wanted.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// UpdateBook applies patch to the cached book. Reports whether the book exists.
func (db *DB) UpdateBook(ctx context.Context, googleID string, patch models.BookPatch) (bool, error) {
	res, err := db.Books().UpdateOne(ctx, bson.M{"google_id": googleID}, bson.M{"$set": bookPatchSet(patch)})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SetBookCoverKey records where the mirrored thumbnail lives.
func (db *DB) SetBookCoverKey(ctx context.Context, googleID, key string) error {
	_, err := db.Books().UpdateOne(ctx, bson.M{"google_id": googleID}, bson.M{"$set": bson.M{"cover_s3_key": key}})
	return err
}

func bookPatchSet(p models.BookPatch) bson.M {
	set := bson.M{"updated_at": nowUTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Authors != nil {
		set["authors"] = p.Authors
	}
	if p.Publisher != nil {
		set["publisher"] = *p.Publisher
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Thumbnail != nil {
		set["thumbnail"] = *p.Thumbnail
	}
	if p.PageCount != nil {
		set["page_count"] = *p.PageCount
	}
	if p.Categories != nil {
		set["categories"] = p.Categories
	}
	if p.ISBN != nil {
		set["isbn"] = *p.ISBN
	}
	return set
}
