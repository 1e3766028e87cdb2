package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/store"
)

// Session is the result of a login or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime, seconds
	User         *models.User
}

// SessionManager owns the login/refresh/logout lifecycle. A user is logged in
// while a refresh hash is stored; each login overwrites it.
type SessionManager struct {
	users  UserStore
	tokens *TokenService
	hasher PasswordHasher
	log    *zap.Logger
	now    func() time.Time
}

func NewSessionManager(users UserStore, tokens *TokenService, hasher PasswordHasher, log *zap.Logger) *SessionManager {
	return &SessionManager{users: users, tokens: tokens, hasher: hasher, log: log, now: time.Now}
}

func (m *SessionManager) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return nil, apperr.Validation("username must be 3-50 characters")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	existing, err := m.users.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, apperr.ErrAlreadyExists.WithMessage("username already registered")
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: username, Password: hash, CreatedAt: m.now().UTC()}
	id, err := m.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrAlreadyExists.WithMessage("username already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	m.log.Info("user registered", zap.String("user_id", id.Hex()), zap.String("username", username))
	return user, nil
}

// Login verifies credentials and replaces any previous refresh session.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := m.users.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !m.hasher.Verify(user.Password, password) {
		return nil, apperr.ErrAuthFailed
	}

	sess, err := m.issue(user)
	if err != nil {
		return nil, err
	}
	if err := m.users.SetRefreshTokenHash(ctx, user.ID, HashToken(sess.RefreshToken)); err != nil {
		return nil, fmt.Errorf("store refresh hash: %w", err)
	}
	m.log.Info("user logged in", zap.String("user_id", user.ID.Hex()))
	return sess, nil
}

// Refresh rotates a refresh token. The presented token is consumed whether or
// not a concurrent refresh wins the swap.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (*Session, error) {
	claims, err := m.tokens.Decode(presented)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, apperr.ErrInvalidToken.WithMessage("not a refresh token")
	}
	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	user, err := m.users.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.LoggedIn() {
		return nil, apperr.ErrSessionNotFound
	}
	presentedHash := HashToken(presented)
	if subtle.ConstantTimeCompare([]byte(user.RefreshTokenHash), []byte(presentedHash)) != 1 {
		m.log.Warn("refresh token mismatch", zap.String("user_id", user.ID.Hex()))
		return nil, apperr.ErrTokenMismatch
	}

	sess, err := m.issue(user)
	if err != nil {
		return nil, err
	}
	swapped, err := m.users.SwapRefreshTokenHash(ctx, user.ID, presentedHash, HashToken(sess.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("rotate refresh hash: %w", err)
	}
	if !swapped {
		return nil, apperr.ErrTokenMismatch
	}
	return sess, nil
}

// Logout clears the stored refresh hash. Calling it twice is fine.
func (m *SessionManager) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := m.users.ClearRefreshTokenHash(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh hash: %w", err)
	}
	m.log.Info("user logged out", zap.String("user_id", userID.Hex()))
	return nil
}

func (m *SessionManager) User(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := m.users.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (m *SessionManager) issue(user *models.User) (*Session, error) {
	id := user.ID.Hex()
	access, err := m.tokens.IssueAccess(id, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.tokens.IssueRefresh(id, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.tokens.AccessTTL().Seconds()),
		User:         user,
	}, nil
}
