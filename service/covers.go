package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/models"
)

const (
	coverPrefix     = "books/covers/"
	coverMaxBytes   = 5 << 20
	coverFetchLimit = 10 * time.Second
)

// CoverMirror copies catalog thumbnails into object storage so covers keep
// working when the catalog's image links expire.
type CoverMirror struct {
	storage ObjectStorage
	books   BookStore
	client  *http.Client
	log     *zap.Logger
}

func NewCoverMirror(storage ObjectStorage, books BookStore, log *zap.Logger) *CoverMirror {
	return &CoverMirror{
		storage: storage,
		books:   books,
		client:  &http.Client{Timeout: coverFetchLimit},
		log:     log,
	}
}

// Mirror downloads book.Thumbnail and records the stored key on the book.
// Failures are logged and swallowed.
func (c *CoverMirror) Mirror(ctx context.Context, book *models.Book) {
	if book.Thumbnail == "" {
		return
	}
	log := c.log.With(zap.String("book_id", book.GoogleID))

	img, contentType, err := c.download(ctx, book.Thumbnail)
	if err != nil {
		log.Warn("cover download failed", zap.Error(err))
		return
	}
	ext := ".jpg"
	if strings.Contains(contentType, "png") {
		ext = ".png"
	}
	key, err := c.storage.Upload(ctx, coverPrefix, "cover"+ext, bytes.NewReader(img), contentType)
	if err != nil {
		log.Warn("cover upload failed", zap.Error(err))
		return
	}
	if err := c.books.SetBookCoverKey(ctx, book.GoogleID, key); err != nil {
		log.Warn("saving cover key failed", zap.Error(err))
		_ = c.storage.Delete(ctx, key)
		return
	}
	if old := book.CoverS3Key; old != "" && old != key {
		if err := c.storage.Delete(ctx, old); err != nil {
			log.Warn("deleting old cover failed", zap.String("key", old), zap.Error(err))
		}
	}
	book.CoverS3Key = key
}

func (c *CoverMirror) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	body, contentType, err := c.storage.GetObject(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("get cover %s: %w", key, err)
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return body, contentType, nil
}

func (c *CoverMirror) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover URL returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, coverMaxBytes))
	if err != nil {
		return nil, "", err
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("cover URL returned an empty body")
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return body, ct, nil
}
