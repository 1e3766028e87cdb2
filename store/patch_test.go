package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kevinaaaquil/readlog/backend/models"
)

func TestUserBookPatchSet(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	page := 35
	status := models.StatusPaused

	set := userBookPatchSet(models.UserBookPatch{CurrentPage: &page, Status: &status, LastReadDate: &now, UpdatedAt: now})
	assert.Equal(t, bson.M{"updated_at": now, "current_page": 35, "status": "paused", "last_read_date": now}, set)

	// clearing wins over a value and writes null
	set = userBookPatchSet(models.UserBookPatch{StartDate: &now, ClearStartDate: true, ClearLastReadDate: true, UpdatedAt: now})
	assert.Equal(t, bson.M{"updated_at": now, "start_date": nil, "last_read_date": nil}, set)
}

func TestBookPatchSet(t *testing.T) {
	title := "Foo"
	pages := 0

	set := bookPatchSet(models.BookPatch{Title: &title, PageCount: &pages, Authors: []string{}})
	assert.Equal(t, "Foo", set["title"])
	assert.Equal(t, 0, set["page_count"])
	assert.Equal(t, []string{}, set["authors"])
	assert.Contains(t, set, "updated_at")
	assert.NotContains(t, set, "publisher")
	assert.NotContains(t, set, "isbn")
}
