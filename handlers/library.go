package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

type LibraryHandler struct {
	Library  *service.LibraryManager
	Validate *validation.Validator
	Log      *zap.Logger
}

// AddBookRequest matches a catalog search hit, so clients can post one back as-is.
type AddBookRequest struct {
	ID            string   `json:"id" validate:"required,max=200"`
	Title         string   `json:"title" validate:"required,max=500"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"published_date"`
	Publisher     string   `json:"publisher"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail" validate:"omitempty,url"`
	PageCount     int      `json:"page_count" validate:"gte=0"`
	Categories    []string `json:"categories"`
	InfoLink      string   `json:"info_link"`
	ISBN          string   `json:"isbn"`
}

type UpdateBookRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=500"`
	Authors     []string `json:"authors"`
	Publisher   *string  `json:"publisher"`
	Description *string  `json:"description"`
	Thumbnail   *string  `json:"thumbnail" validate:"omitempty,url"`
	PageCount   *int     `json:"page_count" validate:"omitempty,gte=0"`
	Categories  []string `json:"categories"`
	ISBN        *string  `json:"isbn"`
}

type PageCountRequest struct {
	PageCount *int `json:"page_count" validate:"required,gte=0"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=reading completed abandoned paused"`
}

func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Library.Summary(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddBookRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	entry, err := h.Library.Add(r.Context(), userID(r), service.AddBookInput{
		BookID:        req.ID,
		Title:         req.Title,
		Authors:       req.Authors,
		PublishedDate: req.PublishedDate,
		Publisher:     req.Publisher,
		Description:   req.Description,
		Thumbnail:     req.Thumbnail,
		PageCount:     req.PageCount,
		Categories:    req.Categories,
		InfoLink:      req.InfoLink,
		ISBN:          req.ISBN,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Library.Detail(r.Context(), userID(r), bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *LibraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	book, err := h.Library.UpdateBook(r.Context(), userID(r), bookIDParam(r), models.BookPatch{
		Title:       req.Title,
		Authors:     req.Authors,
		Publisher:   req.Publisher,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		PageCount:   req.PageCount,
		Categories:  req.Categories,
		ISBN:        req.ISBN,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Library.Remove(r.Context(), userID(r), bookIDParam(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) SetPageCount(w http.ResponseWriter, r *http.Request) {
	var req PageCountRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	book, err := h.Library.SetPageCount(r.Context(), userID(r), bookIDParam(r), *req.PageCount)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *LibraryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Library.MarkComplete(r.Context(), userID(r), bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *LibraryHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	entry, err := h.Library.SetStatus(r.Context(), userID(r), bookIDParam(r), req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
