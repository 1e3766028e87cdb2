package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/service"
)

type contextKey string

const UserIDKey contextKey = "userID"

// TokenDecoder is satisfied by *service.TokenService.
type TokenDecoder interface {
	Decode(token string) (*service.Claims, error)
}

// Auth requires a bearer access token and puts the caller's id in the request context.
func Auth(tokens TokenDecoder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, apperr.ErrInvalidToken.WithMessage("missing authorization header"))
				return
			}
			scheme, token, ok := strings.Cut(auth, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, apperr.ErrInvalidToken.WithMessage("invalid authorization format"))
				return
			}
			claims, err := tokens.Decode(token)
			if err != nil || claims.Type != service.TokenTypeAccess {
				writeError(w, apperr.ErrInvalidToken)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				writeError(w, apperr.ErrInvalidToken.WithMessage("invalid user id"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDKey, userID)))
		})
	}
}

func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return id, ok
}
