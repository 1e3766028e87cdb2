package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	custom := NotFound("log not found")

	assert.True(t, errors.Is(custom, ErrNotFound))
	assert.False(t, errors.Is(custom, ErrNotInLibrary))
	assert.Equal(t, "log not found", custom.Error())
}

func TestError_IsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("ledger: %w", ErrRegressingProgress)

	assert.True(t, errors.Is(wrapped, ErrRegressingProgress))

	var domainErr *Error
	assert.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, CodeRegressingProgress, domainErr.Code)
}

func TestError_WithCauseKeepsMessageClean(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrCatalogUnavailable.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, "book catalog unavailable", err.Message)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeAuthFailed, http.StatusUnauthorized},
		{CodeInvalidToken, http.StatusUnauthorized},
		{CodeSessionNotFound, http.StatusUnauthorized},
		{CodeTokenMismatch, http.StatusUnauthorized},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeAlreadyInLibrary, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeNotInLibrary, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeRegressingProgress, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeCatalogUnavailable, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
