package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/apperr"
	"github.com/kevinaaaquil/readlog/backend/models"
	"github.com/kevinaaaquil/readlog/backend/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 40
)

// volumesResp is the subset of GET /volumes we read.
type volumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			PageCount           int      `json:"pageCount"`
			Categories          []string `json:"categories"`
			InfoLink            string   `json:"infoLink"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				SmallThumbnail string `json:"smallThumbnail"`
				Thumbnail      string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// CatalogBook is one search hit.
type CatalogBook struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"published_date,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Description   string   `json:"description,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PageCount     int      `json:"page_count"`
	Categories    []string `json:"categories,omitempty"`
	InfoLink      string   `json:"info_link,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
}

type SearchResult struct {
	TotalItems int           `json:"total_items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Items      []CatalogBook `json:"items"`
}

// Catalog searches Google Books and caches every hit in the books collection.
type Catalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
	books   BookStore
	log     *zap.Logger
	now     func() time.Time
}

func NewCatalog(baseURL, apiKey string, books BookStore, log *zap.Logger) *Catalog {
	return &Catalog{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		books:   books,
		log:     log,
		now:     time.Now,
	}
}

func (c *Catalog) Search(ctx context.Context, query string, page, pageSize int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("query is required")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, apperr.Validation(fmt.Sprintf("page must be >= 1 and page_size between 1 and %d", MaxPageSize))
	}
	if c.apiKey == "" {
		return nil, apperr.ErrCatalogUnavailable.WithMessage("book catalog API key not configured")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("key", c.apiKey)
	q.Set("startIndex", strconv.Itoa((page-1)*pageSize))
	q.Set("maxResults", strconv.Itoa(pageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.ErrCatalogUnavailable.WithCause(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.ErrCatalogUnavailable.WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.ErrCatalogUnavailable.WithCause(fmt.Errorf("google books returned %d", resp.StatusCode))
	}
	var data volumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperr.ErrCatalogUnavailable.WithCause(err)
	}

	result := &SearchResult{TotalItems: data.TotalItems, Page: page, PageSize: pageSize, Items: make([]CatalogBook, 0, len(data.Items))}
	for _, it := range data.Items {
		vi := it.VolumeInfo
		b := CatalogBook{
			ID:            it.ID,
			Title:         vi.Title,
			Authors:       vi.Authors,
			PublishedDate: vi.PublishedDate,
			Publisher:     vi.Publisher,
			Description:   strings.TrimSpace(vi.Description),
			Thumbnail:     vi.ImageLinks.Thumbnail,
			PageCount:     vi.PageCount,
			Categories:    vi.Categories,
			InfoLink:      vi.InfoLink,
		}
		if vi.Subtitle != "" {
			b.Title += ": " + vi.Subtitle
		}
		if b.Thumbnail == "" {
			b.Thumbnail = vi.ImageLinks.SmallThumbnail
		}
		if b.Authors == nil {
			b.Authors = []string{}
		}
		var isbn13, isbn10 string
		for _, id := range vi.IndustryIdentifiers {
			switch id.Type {
			case "ISBN_13":
				isbn13 = id.Identifier
			case "ISBN_10":
				isbn10 = id.Identifier
			}
		}
		b.ISBN = utils.PreferredISBN(isbn13, isbn10)
		result.Items = append(result.Items, b)
		c.cache(ctx, b)
	}
	return result, nil
}

// cache stores a hit unless the book is already known. Errors are logged only.
func (c *Catalog) cache(ctx context.Context, b CatalogBook) {
	if b.ID == "" || c.books == nil {
		return
	}
	now := c.now().UTC()
	_, err := c.books.InsertBookIfAbsent(ctx, &models.Book{
		GoogleID:      b.ID,
		Title:         b.Title,
		Authors:       b.Authors,
		PublishedDate: b.PublishedDate,
		Publisher:     b.Publisher,
		Description:   b.Description,
		Thumbnail:     b.Thumbnail,
		PageCount:     b.PageCount,
		Categories:    b.Categories,
		InfoLink:      b.InfoLink,
		ISBN:          b.ISBN,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		c.log.Warn("caching catalog book failed", zap.String("book_id", b.ID), zap.Error(err))
	}
}
