package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/markhive/markhive/pkg/models"
)

// ============================================
// DOCUMENT OPERATIONS
// ============================================

// DocumentWrite carries the per-file fields common to every document write.
// Paths must already be normalized (absolute, NFC, forward slashes); the
// store never normalizes on its own.
type DocumentWrite struct {
	FilePath         string
	FileName         string
	FileType         string
	FileSize         int64
	FileCreatedAt    time.Time
	FileModifiedTime time.Time
	Source           string
	SourceURL        *string
}

// LookupByPath returns the document stored under the given normalized path,
// compared case-insensitively, or models.ErrDocumentNotFound.
func (s *GORMStore) LookupByPath(ctx context.Context, path string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("LOWER(file_path) = ?", strings.ToLower(path)).
		First(&doc).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrDocumentNotFound)
	}
	return &doc, nil
}

// GetDocument returns a document by primary key.
func (s *GORMStore) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrDocumentNotFound)
	}
	return &doc, nil
}

// MarkCompleted upserts a document as successfully converted. It is one of
// the two write entry points used by the ingestion coordinator; it clears
// ErrorMessage and sets content and conversion type, keeping the
// completed-status invariant in one place.
func (s *GORMStore) MarkCompleted(ctx context.Context, w DocumentWrite, content string, ct models.ConversionType) (*models.Document, error) {
	doc := &models.Document{
		FileName:         w.FileName,
		FileType:         w.FileType,
		FileSize:         w.FileSize,
		FileCreatedAt:    w.FileCreatedAt,
		FileModifiedTime: w.FileModifiedTime,
		FilePath:         w.FilePath,
		MarkdownContent:  &content,
		ConversionType:   &ct,
		Status:           models.StatusCompleted,
		ErrorMessage:     nil,
		Source:           w.Source,
		SourceURL:        w.SourceURL,
	}
	return s.upsert(ctx, doc)
}

// MarkFailed upserts a document as failed with the handler's error message.
// Any previously stored content and conversion type are cleared so the
// failed-status invariant holds.
func (s *GORMStore) MarkFailed(ctx context.Context, w DocumentWrite, errMsg string) (*models.Document, error) {
	doc := &models.Document{
		FileName:         w.FileName,
		FileType:         w.FileType,
		FileSize:         w.FileSize,
		FileCreatedAt:    w.FileCreatedAt,
		FileModifiedTime: w.FileModifiedTime,
		FilePath:         w.FilePath,
		MarkdownContent:  nil,
		ConversionType:   nil,
		Status:           models.StatusFailed,
		ErrorMessage:     &errMsg,
		Source:           w.Source,
		SourceURL:        w.SourceURL,
	}
	return s.upsert(ctx, doc)
}

// upsert inserts or updates the row keyed by file_path. The unique index on
// file_path plus INSERT ... ON CONFLICT makes concurrent upserts on the same
// path serialize inside the database; there is never more than one row per
// path.
func (s *GORMStore) upsert(ctx context.Context, doc *models.Document) (*models.Document, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_name", "file_type", "file_size", "file_created_at",
			"file_modified_time", "markdown_content", "conversion_type",
			"status", "error_message", "source", "source_url", "updated_at",
		}),
	}).Create(doc).Error
	if err != nil {
		return nil, err
	}

	// Re-read to get the canonical row (the conflict path leaves doc.ID zero).
	return s.LookupByPath(ctx, doc.FilePath)
}

// UpdateConversionOutcome rewrites only the conversion outcome of an
// existing document. Used by the manual retry flow, which must not touch
// file metadata captured at ingest time.
func (s *GORMStore) UpdateConversionOutcome(ctx context.Context, id uint, content *string, ct *models.ConversionType, errMsg *string) error {
	status := models.StatusCompleted
	if errMsg != nil {
		status = models.StatusFailed
	}
	result := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"markdown_content": content,
			"conversion_type":  ct,
			"status":           status,
			"error_message":    errMsg,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// BulkDelete removes the given documents and returns how many rows were
// actually deleted.
func (s *GORMStore) BulkDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Document{})
	return result.RowsAffected, result.Error
}

// DistinctFileTypes returns the set of file types present in the index,
// sorted by the database.
func (s *GORMStore) DistinctFileTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("file_type <> ''").
		Distinct("file_type").
		Order("file_type").
		Pluck("file_type", &types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

// OrphanFilter narrows an orphan listing.
type OrphanFilter struct {
	// Folder is the normalized root; documents whose path is NOT under it
	// are orphans of that folder.
	Folder string
	// FileType optionally restricts to one extension.
	FileType string
	// PathKeyword optionally requires a case-insensitive path substring.
	PathKeyword string
	Page        int
	PerPage     int
}

// FindOrphans pages through documents whose file_path is no longer under the
// given folder. Returns the page and the total match count.
func (s *GORMStore) FindOrphans(ctx context.Context, f OrphanFilter) ([]*models.Document, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}

	prefix := strings.TrimSuffix(f.Folder, "/") + "/"
	q := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("LOWER(file_path) NOT LIKE ?", strings.ToLower(prefix)+"%")

	if f.FileType != "" {
		q = q.Where("file_type = ?", strings.ToLower(f.FileType))
	}
	if f.PathKeyword != "" {
		q = q.Where("LOWER(file_path) LIKE ?", "%"+strings.ToLower(f.PathKeyword)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []*models.Document
	err := q.Order("file_path ASC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// CountDocuments returns the number of indexed documents, optionally
// filtered by status.
func (s *GORMStore) CountDocuments(ctx context.Context, status models.DocumentStatus) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Document{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// ListDocuments pages through documents ordered by most recent update.
func (s *GORMStore) ListDocuments(ctx context.Context, page, perPage int) ([]*models.Document, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var docs []*models.Document
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Transaction runs fn inside a database transaction.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
