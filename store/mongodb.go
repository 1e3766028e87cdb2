package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrDuplicate is returned when a write violates one of the unique indexes.
var ErrDuplicate = errors.New("store: duplicate key")

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string, log *zap.Logger) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to mongodb", zap.String("database", dbName))
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) UserBooks() *mongo.Collection {
	return db.Database.Collection("user_books")
}

func (db *DB) ReadingLogs() *mongo.Collection {
	return db.Database.Collection("reading_logs")
}

// EnsureIndexes creates the unique indexes the services rely on for
// one user per username, one cached book per catalog id, one library entry
// per (user, book) and one log per (user, book, day).
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll *mongo.Collection
		idx  []mongo.IndexModel
	}{
		{db.Users(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		}},
		{db.Books(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: unique},
		}},
		{db.UserBooks(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "book_id", Value: 1}}, Options: unique},
		}},
		{db.ReadingLogs(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "book_id", Value: 1}, {Key: "reading_date", Value: 1}}, Options: unique},
		}},
	}
	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.idx); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, nil)
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}

// mapWriteErr converts unique index violations into ErrDuplicate.
func mapWriteErr(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
