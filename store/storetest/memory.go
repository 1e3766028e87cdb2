// Package storetest provides an in-memory implementation of the store methods
// used by the services, with the same unique constraints as the MongoDB indexes.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Memory struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]models.User
	books     map[string]models.Book
	userBooks map[primitive.ObjectID]models.UserBook
	logs      map[primitive.ObjectID]models.ReadingLog

	// Writes counts successful mutations, so tests can assert that a failed
	// operation wrote nothing.
	Writes int
}

func New() *Memory {
	return &Memory{
		users:     map[primitive.ObjectID]models.User{},
		books:     map[string]models.Book{},
		userBooks: map[primitive.ObjectID]models.UserBook{},
		logs:      map[primitive.ObjectID]models.ReadingLog{},
	}
}

// users

func (m *Memory) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return primitive.NilObjectID, store.ErrDuplicate
		}
	}
	u := *user
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = u
	m.Writes++
	return u.ID, nil
}

func (m *Memory) SetRefreshTokenHash(_ context.Context, id primitive.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.RefreshTokenHash = hash
		m.users[id] = u
		m.Writes++
	}
	return nil
}

func (m *Memory) SwapRefreshTokenHash(_ context.Context, id primitive.ObjectID, oldHash, newHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	m.users[id] = u
	m.Writes++
	return true, nil
}

func (m *Memory) ClearRefreshTokenHash(_ context.Context, id primitive.ObjectID) error {
	return m.SetRefreshTokenHash(context.Background(), id, "")
}

// books

func (m *Memory) BookByGoogleID(_ context.Context, googleID string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[googleID]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) BooksByGoogleIDs(_ context.Context, ids []string) ([]models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Book{}
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) InsertBookIfAbsent(_ context.Context, book *models.Book) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[book.GoogleID]; ok {
		return false, nil
	}
	b := *book
	b.ID = primitive.NewObjectID()
	m.books[b.GoogleID] = b
	m.Writes++
	return true, nil
}

func (m *Memory) UpdateBook(_ context.Context, googleID string, p models.BookPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[googleID]
	if !ok {
		return false, nil
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Authors != nil {
		b.Authors = p.Authors
	}
	if p.Publisher != nil {
		b.Publisher = *p.Publisher
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Thumbnail != nil {
		b.Thumbnail = *p.Thumbnail
	}
	if p.PageCount != nil {
		b.PageCount = *p.PageCount
	}
	if p.Categories != nil {
		b.Categories = p.Categories
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	b.UpdatedAt = time.Now().UTC()
	m.books[googleID] = b
	m.Writes++
	return true, nil
}

func (m *Memory) SetBookCoverKey(_ context.Context, googleID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[googleID]; ok {
		b.CoverS3Key = key
		m.books[googleID] = b
		m.Writes++
	}
	return nil
}

// library entries

func (m *Memory) UserBook(_ context.Context, userID primitive.ObjectID, bookID string) (*models.UserBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ub, ok := m.findUserBook(userID, bookID); ok {
		return &ub, nil
	}
	return nil, nil
}

func (m *Memory) findUserBook(userID primitive.ObjectID, bookID string) (models.UserBook, bool) {
	for _, ub := range m.userBooks {
		if ub.UserID == userID && ub.BookID == bookID {
			return ub, true
		}
	}
	return models.UserBook{}, false
}

func (m *Memory) InsertUserBook(_ context.Context, ub *models.UserBook) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findUserBook(ub.UserID, ub.BookID); ok {
		return primitive.NilObjectID, store.ErrDuplicate
	}
	e := *ub
	e.ID = primitive.NewObjectID()
	m.userBooks[e.ID] = e
	m.Writes++
	return e.ID, nil
}

func (m *Memory) ListUserBooks(_ context.Context, userID primitive.ObjectID) ([]models.UserBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserBook{}
	for _, ub := range m.userBooks {
		if ub.UserID == userID {
			out = append(out, ub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateUserBook(_ context.Context, userID primitive.ObjectID, bookID string, p models.UserBookPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ub, ok := m.findUserBook(userID, bookID)
	if !ok {
		return false, nil
	}
	if p.CurrentPage != nil {
		ub.CurrentPage = *p.CurrentPage
	}
	if p.Status != nil {
		ub.Status = *p.Status
	}
	if p.ClearStartDate {
		ub.StartDate = nil
	} else if p.StartDate != nil {
		d := *p.StartDate
		ub.StartDate = &d
	}
	if p.ClearLastReadDate {
		ub.LastReadDate = nil
	} else if p.LastReadDate != nil {
		d := *p.LastReadDate
		ub.LastReadDate = &d
	}
	ub.UpdatedAt = p.UpdatedAt
	m.userBooks[ub.ID] = ub
	m.Writes++
	return true, nil
}

func (m *Memory) DeleteUserBook(_ context.Context, userID primitive.ObjectID, bookID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ub, ok := m.findUserBook(userID, bookID)
	if !ok {
		return false, nil
	}
	delete(m.userBooks, ub.ID)
	m.Writes++
	return true, nil
}

// reading logs

func (m *Memory) LogByDate(_ context.Context, userID primitive.ObjectID, bookID string, date time.Time) (*models.ReadingLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.findLogByDate(userID, bookID, date); ok {
		return &l, nil
	}
	return nil, nil
}

func (m *Memory) findLogByDate(userID primitive.ObjectID, bookID string, date time.Time) (models.ReadingLog, bool) {
	for _, l := range m.logs {
		if l.UserID == userID && l.BookID == bookID && l.ReadingDate.Equal(date) {
			return l, true
		}
	}
	return models.ReadingLog{}, false
}

func (m *Memory) LogByID(_ context.Context, userID, id primitive.ObjectID) (*models.ReadingLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.logs[id]; ok && l.UserID == userID {
		return &l, nil
	}
	return nil, nil
}

func (m *Memory) LatestLog(_ context.Context, userID primitive.ObjectID, bookID string) (*models.ReadingLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := m.bookLogs(userID, bookID)
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

// bookLogs returns the ledger newest day first.
func (m *Memory) bookLogs(userID primitive.ObjectID, bookID string) []models.ReadingLog {
	out := []models.ReadingLog{}
	for _, l := range m.logs {
		if l.UserID == userID && l.BookID == bookID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadingDate.After(out[j].ReadingDate) })
	return out
}

func (m *Memory) InsertLog(_ context.Context, l *models.ReadingLog) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findLogByDate(l.UserID, l.BookID, l.ReadingDate); ok {
		return primitive.NilObjectID, store.ErrDuplicate
	}
	e := *l
	e.ID = primitive.NewObjectID()
	m.logs[e.ID] = e
	m.Writes++
	return e.ID, nil
}

func (m *Memory) MergeLog(_ context.Context, id primitive.ObjectID, mg models.LogMerge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil
	}
	l.PagesRead += mg.PagesRead
	l.ReadingTimeMinutes += mg.ReadingTimeMinutes
	l.CurrentPage = mg.CurrentPage
	if mg.Notes != "" {
		l.Notes = mg.Notes
	}
	at := mg.UpdatedAt
	l.UpdatedAt = &at
	m.logs[id] = l
	m.Writes++
	return nil
}

func (m *Memory) UpdateLog(_ context.Context, id primitive.ObjectID, u models.LogUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil
	}
	if other, taken := m.findLogByDate(l.UserID, l.BookID, u.ReadingDate); taken && other.ID != id {
		return store.ErrDuplicate
	}
	l.ReadingDate = u.ReadingDate
	l.PagesRead = u.PagesRead
	l.CurrentPage = u.CurrentPage
	l.ReadingTimeMinutes = u.ReadingTimeMinutes
	l.Notes = u.Notes
	at := u.UpdatedAt
	l.UpdatedAt = &at
	m.logs[id] = l
	m.Writes++
	return nil
}

func (m *Memory) DeleteLog(_ context.Context, userID, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok || l.UserID != userID {
		return false, nil
	}
	delete(m.logs, id)
	m.Writes++
	return true, nil
}

func (m *Memory) DeleteLogsForBook(_ context.Context, userID primitive.ObjectID, bookID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.logs {
		if l.UserID == userID && l.BookID == bookID {
			delete(m.logs, id)
			n++
		}
	}
	if n > 0 {
		m.Writes++
	}
	return n, nil
}

func (m *Memory) CountLogs(_ context.Context, userID primitive.ObjectID, bookID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.bookLogs(userID, bookID))), nil
}

func (m *Memory) Logs(_ context.Context, userID primitive.ObjectID, bookID string) ([]models.ReadingLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookLogs(userID, bookID), nil
}
