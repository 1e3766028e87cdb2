package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/middleware"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends domain errors as {"error","code"}; anything else is logged
// in full and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code == apperr.CodeInternal {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, apperr.ErrInternal)
		return
	}
	if appErr.Unwrap() != nil {
		log.Warn("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}
	writeJSON(w, appErr.HTTPStatus(), appErr)
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r *http.Request, v *validation.Validator, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return v.Validate(dst)
}

// userID is only called behind middleware.Auth.
func userID(r *http.Request) primitive.ObjectID {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("dates must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

func bookIDParam(r *http.Request) string {
	return chi.URLParam(r, "book_id")
}
