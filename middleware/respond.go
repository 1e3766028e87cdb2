package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kevinaaaquil/readlog/backend/apperr"
)

func writeError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e)
}
