package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/store/storetest"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	mem     *storetest.Memory
	pingErr error
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	mem := storetest.New()

	catalogAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"gb-42","volumeInfo":{"title":"Foo","authors":["Ann"],"pageCount":180}}]}`))
	}))
	t.Cleanup(catalogAPI.Close)

	ts := &testServer{t: t, mem: mem}
	tokens := service.NewTokenService("test-secret", time.Hour, 7*24*time.Hour)
	ts.handler = NewRouter(Deps{
		Log:             log,
		Tokens:          tokens,
		Sessions:        service.NewSessionManager(mem, tokens, service.BcryptHasher{Cost: bcrypt.MinCost}, log),
		Library:         service.NewLibraryManager(mem, nil, log),
		Ledger:          service.NewReadingLedger(mem, log),
		Catalog:         service.NewCatalog(catalogAPI.URL, "k", mem, log),
		Ping:            func(context.Context) error { return ts.pingErr },
		AllowedOrigins:  []string{"http://localhost:3000"},
		LoginRatePerMin: 100,
	})
	return ts
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(s.t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatal("no refresh cookie set")
	return nil
}

// login registers username and returns the access token and refresh cookie.
func (s *testServer) login(username string) (string, *http.Cookie) {
	s.t.Helper()
	rec := s.do(call{method: http.MethodPost, path: "/users/register", body: map[string]string{"username": username, "password": "password123"}})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"username": username, "password": "password123"}})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[TokenResponse](s.t, rec).AccessToken, refreshCookie(s.t, rec)
}

func TestReadingFlow(t *testing.T) {
	s := setupServer(t)
	token, _ := s.login("alice")

	rec := s.do(call{method: http.MethodPost, path: "/library", token: token, body: map[string]any{"id": "gb-42", "title": "Foo", "page_count": 180}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, pages := range []struct{ read, current int }{{20, 20}, {15, 35}} {
		rec = s.do(call{method: http.MethodPost, path: "/library/gb-42/logs", token: token, body: map[string]any{
			"reading_date": "2024-01-01", "pages_read": pages.read, "current_page": pages.current,
		}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = s.do(call{method: http.MethodGet, path: "/library", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[[]map[string]any](t, rec)
	require.Len(t, summary, 1)
	assert.EqualValues(t, 35, summary[0]["current_page"])
	assert.EqualValues(t, 19.4, summary[0]["progress_percentage"])

	rec = s.do(call{method: http.MethodGet, path: "/library/gb-42/logs", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]map[string]any](t, rec)
	require.Len(t, logs, 1)
	assert.EqualValues(t, 35, logs[0]["pages_read"])

	rec = s.do(call{method: http.MethodPost, path: "/library/gb-42/complete", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[map[string]any](t, rec)
	assert.EqualValues(t, 180, entry["current_page"])
	assert.Equal(t, "completed", entry["status"])
}

func TestLogErrors(t *testing.T) {
	s := setupServer(t)
	token, _ := s.login("alice")
	rec := s.do(call{method: http.MethodPost, path: "/library", token: token, body: map[string]any{"id": "gb-42", "title": "Foo"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(call{method: http.MethodPost, path: "/library/gb-42/logs", token: token, body: map[string]any{"reading_date": "2024-01-02", "pages_read": 40, "current_page": 40}})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name string
		c    call
		want int
		code string
	}{
		{"regressing", call{method: http.MethodPost, path: "/library/gb-42/logs", body: map[string]any{"pages_read": 1, "current_page": 10}}, http.StatusBadRequest, "REGRESSING_PROGRESS"},
		{"not in library", call{method: http.MethodPost, path: "/library/gb-9/logs", body: map[string]any{"pages_read": 1, "current_page": 10}}, http.StatusNotFound, "NOT_IN_LIBRARY"},
		{"missing current page", call{method: http.MethodPost, path: "/library/gb-42/logs", body: map[string]any{"pages_read": 1}}, http.StatusBadRequest, "VALIDATION"},
		{"bad date", call{method: http.MethodPost, path: "/library/gb-42/logs", body: map[string]any{"reading_date": "02/01/2024", "pages_read": 1, "current_page": 50}}, http.StatusBadRequest, "VALIDATION"},
		{"modify missing", call{method: http.MethodPut, path: "/library/gb-42/logs/2023-01-01", body: map[string]any{"pages_read": 1, "current_page": 50}}, http.StatusNotFound, "NOT_FOUND"},
		{"remove bad id", call{method: http.MethodDelete, path: "/logs/xyz"}, http.StatusNotFound, "NOT_FOUND"},
		{"add twice", call{method: http.MethodPost, path: "/library", body: map[string]any{"id": "gb-42", "title": "Foo"}}, http.StatusConflict, "ALREADY_IN_LIBRARY"},
		{"bad status", call{method: http.MethodPut, path: "/library/gb-42/status", body: map[string]any{"status": "lost"}}, http.StatusBadRequest, "VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.c.token = token
			rec := s.do(tt.c)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[map[string]any](t, rec)["code"])
		})
	}
}

func TestModifyAndRemoveLog(t *testing.T) {
	s := setupServer(t)
	token, _ := s.login("alice")
	s.do(call{method: http.MethodPost, path: "/library", token: token, body: map[string]any{"id": "gb-42", "title": "Foo", "page_count": 100}})
	rec := s.do(call{method: http.MethodPost, path: "/library/gb-42/logs", token: token, body: map[string]any{"reading_date": "2024-01-01", "pages_read": 10, "current_page": 10}})
	require.Equal(t, http.StatusCreated, rec.Code)
	logID := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(call{method: http.MethodPut, path: "/library/gb-42/logs/2024-01-01", token: token, body: map[string]any{"reading_date": "2024-01-03", "pages_read": 12, "current_page": 12, "notes": "moved"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "moved", decode[map[string]any](t, rec)["notes"])

	rec = s.do(call{method: http.MethodDelete, path: "/logs/" + logID, token: token})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/library/gb-42", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[map[string]any](t, rec)["entry"].(map[string]any)
	assert.EqualValues(t, 0, entry["current_page"])
	assert.Nil(t, entry["start_date"])
	assert.Nil(t, entry["last_read_date"])
}

func TestLibraryEdits(t *testing.T) {
	s := setupServer(t)
	token, _ := s.login("alice")
	s.do(call{method: http.MethodPost, path: "/library", token: token, body: map[string]any{"id": "gb-42", "title": "Foo"}})

	rec := s.do(call{method: http.MethodPut, path: "/library/gb-42/pages", token: token, body: map[string]any{"page_count": 320}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 320, decode[map[string]any](t, rec)["page_count"])

	rec = s.do(call{method: http.MethodPatch, path: "/library/gb-42", token: token, body: map[string]any{"title": "Foo (2nd ed.)", "authors": []string{"Ann"}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Foo (2nd ed.)", decode[map[string]any](t, rec)["title"])

	rec = s.do(call{method: http.MethodPut, path: "/library/gb-42/status", token: token, body: map[string]any{"status": "paused"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", decode[map[string]any](t, rec)["status"])

	rec = s.do(call{method: http.MethodDelete, path: "/library/gb-42", token: token})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(call{method: http.MethodGet, path: "/library/gb-42", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := setupServer(t)
	token, first := s.login("alice")

	assert.True(t, first.HttpOnly)
	assert.Equal(t, refreshCookiePath, first.Path)

	rec := s.do(call{method: http.MethodGet, path: "/users/me", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "password")

	rec = s.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{first}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := refreshCookie(t, rec)

	// the first refresh token was consumed
	rec = s.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{first}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MISMATCH", decode[map[string]any](t, rec)["code"])

	// JSON body fallback
	rec = s.do(call{method: http.MethodPost, path: "/auth/refresh", body: map[string]string{"refresh_token": second.Value}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	third := refreshCookie(t, rec)

	rec = s.do(call{method: http.MethodPost, path: "/auth/logout", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	rec = s.do(call{method: http.MethodPost, path: "/auth/refresh", cookies: []*http.Cookie{third}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[map[string]any](t, rec)["code"])
}

func TestAuthFailures(t *testing.T) {
	s := setupServer(t)
	s.login("alice")

	rec := s.do(call{method: http.MethodPost, path: "/users/register", body: map[string]string{"username": "alice", "password": "password123"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/users/register", body: map[string]string{"username": "bo", "password": "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode[map[string]any](t, rec)["details"].(map[string]any)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "password")

	rec = s.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"username": "alice", "password": "nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_FAILED", decode[map[string]any](t, rec)["code"])

	rec = s.do(call{method: http.MethodGet, path: "/library"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/auth/refresh"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenForm(t *testing.T) {
	s := setupServer(t)
	s.login("alice")

	form := url.Values{"username": {"alice"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[TokenResponse](t, rec)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestSearch(t *testing.T) {
	s := setupServer(t)
	token, _ := s.login("alice")

	rec := s.do(call{method: http.MethodGet, path: "/books/search?q=foo&page=1&page_size=5", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.SearchResult](t, rec)
	assert.Equal(t, 1, res.TotalItems)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "gb-42", res.Items[0].ID)

	rec = s.do(call{method: http.MethodGet, path: "/books/search?q=foo&page_size=99", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/books/gb-42/cover"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	rec := s.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)

	s.pingErr = errors.New("no primary")
	rec = s.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/"})
	assert.JSONEq(t, `{"message":"welcome to readlog."}`, rec.Body.String())
}

func TestWriteError_HidesUnexpectedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/library", nil)

	writeError(rec, req, zaptest.NewLogger(t), errors.New("mongo: connection pool cleared"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"INTERNAL","error":"internal server error"}`, rec.Body.String())
}
