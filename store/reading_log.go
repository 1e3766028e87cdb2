package store

import (
	"context"
	"time"

	"github.com/kevinaaaquil/readlog/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) LogByDate(ctx context.Context, userID primitive.ObjectID, bookID string, date time.Time) (*models.ReadingLog, error) {
	return db.findLog(ctx, bson.M{"user_id": userID, "book_id": bookID, "reading_date": date})
}

func (db *DB) LogByID(ctx context.Context, userID, id primitive.ObjectID) (*models.ReadingLog, error) {
	return db.findLog(ctx, bson.M{"_id": id, "user_id": userID})
}

// LatestLog returns the log with the greatest reading_date for (user, book), or nil.
func (db *DB) LatestLog(ctx context.Context, userID primitive.ObjectID, bookID string) (*models.ReadingLog, error) {
	return db.findLog(ctx,
		bson.M{"user_id": userID, "book_id": bookID},
		options.FindOne().SetSort(bson.D{{Key: "reading_date", Value: -1}}),
	)
}

func (db *DB) findLog(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.ReadingLog, error) {
	var l models.ReadingLog
	err := db.ReadingLogs().FindOne(ctx, filter, opts...).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// InsertLog adds a ledger row. Another row on the same day yields ErrDuplicate.
func (db *DB) InsertLog(ctx context.Context, l *models.ReadingLog) (primitive.ObjectID, error) {
	res, err := db.ReadingLogs().InsertOne(ctx, l, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// MergeLog folds m into an existing row with a single atomic update so
// concurrent merges on the same day cannot lose pages.
func (db *DB) MergeLog(ctx context.Context, id primitive.ObjectID, m models.LogMerge) error {
	set := bson.M{
		"current_page": m.CurrentPage,
		"updated_at":   m.UpdatedAt,
	}
	if m.Notes != "" {
		set["notes"] = m.Notes
	}
	inc := bson.M{"pages_read": m.PagesRead}
	if m.ReadingTimeMinutes > 0 {
		inc["reading_time_minutes"] = m.ReadingTimeMinutes
	}
	_, err := db.ReadingLogs().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": inc, "$set": set})
	return err
}

// UpdateLog rewrites a row in place, possibly moving it to another day.
// Moving onto a day that already has a row yields ErrDuplicate.
func (db *DB) UpdateLog(ctx context.Context, id primitive.ObjectID, u models.LogUpdate) error {
	_, err := db.ReadingLogs().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reading_date":         u.ReadingDate,
		"pages_read":           u.PagesRead,
		"current_page":         u.CurrentPage,
		"reading_time_minutes": u.ReadingTimeMinutes,
		"notes":                u.Notes,
		"updated_at":           u.UpdatedAt,
	}})
	return mapWriteErr(err)
}

// DeleteLog removes one row. Reports whether a row was removed.
func (db *DB) DeleteLog(ctx context.Context, userID, id primitive.ObjectID) (bool, error) {
	res, err := db.ReadingLogs().DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeleteLogsForBook purges a book's whole ledger for one user.
func (db *DB) DeleteLogsForBook(ctx context.Context, userID primitive.ObjectID, bookID string) (int64, error) {
	res, err := db.ReadingLogs().DeleteMany(ctx, bson.M{"user_id": userID, "book_id": bookID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (db *DB) CountLogs(ctx context.Context, userID primitive.ObjectID, bookID string) (int64, error) {
	return db.ReadingLogs().CountDocuments(ctx, bson.M{"user_id": userID, "book_id": bookID})
}

// Logs lists a book's ledger, newest day first.
func (db *DB) Logs(ctx context.Context, userID primitive.ObjectID, bookID string) ([]models.ReadingLog, error) {
	cur, err := db.ReadingLogs().Find(ctx,
		bson.M{"user_id": userID, "book_id": bookID},
		options.Find().SetSort(bson.D{{Key: "reading_date", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	logs := []models.ReadingLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
