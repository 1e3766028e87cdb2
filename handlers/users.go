package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

type UsersHandler struct {
	Sessions *service.SessionManager
	Validate *validation.Validator
	Log      *zap.Logger
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	user, err := h.Sessions.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Sessions.User(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
