package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/store/storetest"
)

type fixture struct {
	mem      *storetest.Memory
	tokens   *TokenService
	sessions *SessionManager
	library  *LibraryManager
	ledger   *ReadingLedger
	clock    *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTest(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	mem := storetest.New()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)}

	tokens := NewTokenService("test-secret", time.Hour, 7*24*time.Hour)
	tokens.now = clock.Now
	sessions := NewSessionManager(mem, tokens, BcryptHasher{Cost: bcrypt.MinCost}, log)
	sessions.now = clock.Now
	library := NewLibraryManager(mem, nil, log)
	library.now = clock.Now
	ledger := NewReadingLedger(mem, log)
	ledger.now = clock.Now

	return &fixture{mem: mem, tokens: tokens, sessions: sessions, library: library, ledger: ledger, clock: clock}
}

// addBook puts a book with pageCount pages in a fresh user's library.
func (f *fixture) addBook(t *testing.T, bookID string, pageCount int) primitive.ObjectID {
	t.Helper()
	userID := primitive.NewObjectID()
	_, err := f.library.Add(context.Background(), userID, AddBookInput{BookID: bookID, Title: "Book " + bookID, PageCount: pageCount})
	require.NoError(t, err)
	return userID
}

func (f *fixture) entry(t *testing.T, userID primitive.ObjectID, bookID string) *models.UserBook {
	t.Helper()
	e, err := f.mem.UserBook(context.Background(), userID, bookID)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func day(s string) *time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &d
}
