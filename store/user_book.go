package store

import (
	"context"

	"github.com/kevinaaaquil/readlog/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) UserBook(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.UserBook, error) {
	var ub models.UserBook
	err := db.UserBooks().FindOne(ctx, bson.M{"user_id": userID, "book_id": bookID}).Decode(&ub)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ub, nil
}

// InsertUserBook creates a library entry. A second entry for the same (user, book) yields ErrDuplicate.
func (db *DB) InsertUserBook(ctx context.Context, ub *models.UserBook) (primitive.ObjectID, error) {
	res, err := db.UserBooks().InsertOne(ctx, ub, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// ListUserBooks lists a user's library, most recently added first.
func (db *DB) ListUserBooks(ctx context.Context, userID primitive.ObjectID) ([]models.UserBook, error) {
	cur, err := db.UserBooks().Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	entries := []models.UserBook{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateUserBook applies patch. Reports whether the entry exists.
func (db *DB) UpdateUserBook(ctx context.Context, userID primitive.ObjectID, bookID string, patch models.UserBookPatch) (bool, error) {
	res, err := db.UserBooks().UpdateOne(ctx,
		bson.M{"user_id": userID, "book_id": bookID},
		bson.M{"$set": userBookPatchSet(patch)},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// DeleteUserBook removes a library entry. Reports whether one was removed.
func (db *DB) DeleteUserBook(ctx context.Context, userID primitive.ObjectID, bookID string) (bool, error) {
	res, err := db.UserBooks().DeleteOne(ctx, bson.M{"user_id": userID, "book_id": bookID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// userBookPatchSet builds the $set document. Cleared dates are written as null
// so the fields decode back to nil.
func userBookPatchSet(p models.UserBookPatch) bson.M {
	set := bson.M{"updated_at": p.UpdatedAt}
	if p.CurrentPage != nil {
		set["current_page"] = *p.CurrentPage
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.ClearStartDate {
		set["start_date"] = nil
	} else if p.StartDate != nil {
		set["start_date"] = *p.StartDate
	}
	if p.ClearLastReadDate {
		set["last_read_date"] = nil
	} else if p.LastReadDate != nil {
		set["last_read_date"] = *p.LastReadDate
	}
	return set
}
