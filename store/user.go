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

func (db *DB) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts user. A taken username yields ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// SetRefreshTokenHash overwrites the stored refresh hash, revoking any earlier token.
func (db *DB) SetRefreshTokenHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"refresh_token": hash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

func (db *DB) ClearRefreshTokenHash(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"refresh_token": ""}})
	return err
}

// SwapRefreshTokenHash replaces oldHash with newHash only if oldHash is still
// the stored value. Reports whether the swap happened; false means another
// refresh or login rotated the session first.
func (db *DB) SwapRefreshTokenHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) (bool, error) {
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": id, "refresh_token": oldHash},
		bson.M{"$set": bson.M{"refresh_token": newHash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
