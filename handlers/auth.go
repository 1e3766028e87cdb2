package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/auth"
)

type AuthHandler struct {
	Sessions     *service.SessionManager
	Validate     *validation.Validator
	Log          *zap.Logger
	CookieSecure bool
	RefreshTTL   time.Duration
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries the access token. The refresh token only travels in the cookie.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        *models.User `json:"user"`
}

// Login takes a JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, h.Validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.login(w, r, req)
}

// Token is the OAuth2 password-grant form variant of Login.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, h.Log, apperr.Validation("invalid form body"))
		return
	}
	req := LoginRequest{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
	if err := h.Validate.Validate(req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.login(w, r, req)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	sess, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.respondSession(w, sess)
}

// Refresh reads the refresh cookie, falling back to a JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(refreshCookieName); err == nil {
		presented = c.Value
	}
	if presented == "" && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decodeJSON(r, h.Validate, &req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		writeError(w, r, h.Log, apperr.ErrInvalidToken.WithMessage("refresh token missing"))
		return
	}
	sess, err := h.Sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.respondSession(w, sess)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), userID(r)); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	http.SetCookie(w, h.cookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) respondSession(w http.ResponseWriter, sess *service.Session) {
	http.SetCookie(w, h.cookie(sess.RefreshToken, int(h.RefreshTTL.Seconds())))
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: sess.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   sess.ExpiresIn,
		User:        sess.User,
	})
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
