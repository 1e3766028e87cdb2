package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username         string             `bson:"username" json:"username"`
	Password         string             `bson:"password" json:"-"`                        // bcrypt hash
	RefreshTokenHash string             `bson:"refresh_token,omitempty" json:"-"`         // sha256 of the live refresh token; empty when logged out
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        *time.Time         `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// LoggedIn reports whether the user holds a refresh session.
func (u *User) LoggedIn() bool {
	return u.RefreshTokenHash != ""
}
