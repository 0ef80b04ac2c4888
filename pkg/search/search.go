// Package search serves keyword queries over converted documents. It
// consumes the documents table only; the coordinator owns all writes.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/store"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Query is one keyword search request.
type Query struct {
	Keyword   string
	FileTypes []string
	MtimeFrom *time.Time
	MtimeTo   *time.Time
	// SortBy is file_modified_time (default) or file_name.
	SortBy string
	// SortOrder is desc (default) or asc.
	SortOrder string
	Page    int
	PerPage int
}

// Hit is one search result with a highlighted snippet.
type Hit struct {
	ID               uint      `json:"id"`
	FileName         string    `json:"file_name"`
	FilePath         string    `json:"file_path"`
	FileType         string    `json:"file_type"`
	FileModifiedTime time.Time `json:"file_modified_time"`
	Source           string    `json:"source"`
	SourceURL        *string   `json:"source_url,omitempty"`
	Snippet          string    `json:"snippet"`
}

// Results is a page of hits.
type Results struct {
	Hits    []Hit `json:"hits"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// Service runs queries against the document store.
type Service struct {
	store *store.GORMStore
}

func NewService(st *store.GORMStore) *Service {
	return &Service{store: st}
}

// Search returns completed documents whose content or filename matches the
// keyword, filtered, sorted, and paged. An empty keyword is an error.
func (s *Service) Search(ctx context.Context, q Query) (*Results, error) {
	keyword := strings.TrimSpace(q.Keyword)
	if keyword == "" {
		return nil, fmt.Errorf("search keyword is required")
	}
	normalizeQuery(&q)

	pattern := "%" + strings.ToLower(escapeLike(keyword)) + "%"
	db := s.store.DB().WithContext(ctx).
		Model(&models.Document{}).
		Where("status = ?", models.StatusCompleted).
		Where("(LOWER(markdown_content) LIKE ? ESCAPE '\\' OR LOWER(file_name) LIKE ? ESCAPE '\\')",
			pattern, pattern)

	if len(q.FileTypes) > 0 {
		db = db.Where("file_type IN ?", lowered(q.FileTypes))
	}
	if q.MtimeFrom != nil {
		db = db.Where("file_modified_time >= ?", q.MtimeFrom.UTC())
	}
	if q.MtimeTo != nil {
		db = db.Where("file_modified_time <= ?", q.MtimeTo.UTC())
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("search count failed: %w", err)
	}

	var docs []*models.Document
	err := db.
		Order(q.SortBy + " " + q.SortOrder).
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		content := ""
		if doc.MarkdownContent != nil {
			content = *doc.MarkdownContent
		}
		hits = append(hits, Hit{
			ID:               doc.ID,
			FileName:         doc.FileName,
			FilePath:         doc.FilePath,
			FileType:         doc.FileType,
			FileModifiedTime: doc.FileModifiedTime,
			Source:           doc.Source,
			SourceURL:        doc.SourceURL,
			Snippet:          Snippet(content, keyword, DefaultSnippetLength),
		})
	}

	logger.DebugCtx(ctx, "search executed",
		"keyword", keyword,
		"total", total,
		"page", q.Page)

	return &Results{Hits: hits, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

func normalizeQuery(q *Query) {
	switch q.SortBy {
	case "file_name", "file_modified_time":
	default:
		q.SortBy = "file_modified_time"
	}
	switch strings.ToLower(q.SortOrder) {
	case "asc", "desc":
		q.SortOrder = strings.ToLower(q.SortOrder)
	default:
		q.SortOrder = "desc"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
