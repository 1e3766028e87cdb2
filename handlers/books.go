package handlers

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/service"
)

type BooksHandler struct {
	Catalog *service.Catalog
	Library *service.LibraryManager
	Log     *zap.Logger
}

// Search handles GET /books/search?q=&page=&page_size=.
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	size, err := intParam(q.Get("page_size"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	res, err := h.Catalog.Search(r.Context(), q.Get("q"), page, size)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Cover streams the mirrored cover image.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.Library.Cover(r.Context(), bookIDParam(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		h.Log.Warn("streaming cover failed", zap.Error(err))
	}
}

// intParam parses an optional query integer; empty means 0 (use the default).
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("page and page_size must be integers")
	}
	return n, nil
}
