package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

type LogsHandler struct {
	Ledger   *service.ReadingLedger
	Validate *validation.Validator
	Log      *zap.Logger
}

// LogRequest is one reading session. reading_date defaults to today.
type LogRequest struct {
	ReadingDate        string `json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
	PagesRead          int    `json:"pages_read" validate:"gt=0"`
	CurrentPage        *int   `json:"current_page" validate:"required,gte=0"`
	ReadingTimeMinutes int    `json:"reading_time_minutes" validate:"gte=0"`
	Notes              string `json:"notes" validate:"max=5000"`
}

func (req LogRequest) input(bookID string) (service.LogInput, error) {
	in := service.LogInput{
		BookID:             bookID,
		PagesRead:          req.PagesRead,
		CurrentPage:        *req.CurrentPage,
		ReadingTimeMinutes: req.ReadingTimeMinutes,
		Notes:              req.Notes,
	}
	if req.ReadingDate != "" {
		d, err := parseDate(req.ReadingDate)
		if err != nil {
			return in, err
		}
		in.ReadingDate = &d
	}
	return in, nil
}

func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Ledger.ListLogs(r.Context(), userID(r), bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *LogsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in, err := req.input(bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	saved, err := h.Ledger.AddOrMergeLog(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Modify handles PUT /library/{book_id}/logs/{date}; the body may move the log to a new reading_date.
func (h *LogsHandler) Modify(w http.ResponseWriter, r *http.Request) {
	original, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req LogRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in, err := req.input(bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	saved, err := h.Ledger.ModifyLog(r.Context(), userID(r), original, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *LogsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	logID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "log_id"))
	if err != nil {
		writeError(w, r, h.Log, apperr.NotFound("reading log not found"))
		return
	}
	if err := h.Ledger.RemoveLog(r.Context(), userID(r), logID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

