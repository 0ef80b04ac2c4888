package models

import "time"

// DocumentStatus represents the processing state of a document.
type DocumentStatus string

const (
	// StatusPending means the document has been discovered but not converted.
	StatusPending DocumentStatus = "pending"
	// StatusCompleted means conversion succeeded and content is indexed.
	StatusCompleted DocumentStatus = "completed"
	// StatusFailed means conversion failed; ErrorMessage holds the cause.
	StatusFailed DocumentStatus = "failed"
)

// IsValid checks if the status is a known DocumentStatus.
func (s DocumentStatus) IsValid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

// SourceLocalFS is the provenance label for documents ingested directly
// from the local filesystem. Files deposited by external scrapers carry a
// label derived from their drop directory instead.
const SourceLocalFS = "local_fs"

// Document represents one indexed file. FilePath is the identity key: it is
// always stored in normalized form (absolute, NFC, forward slashes) and is
// unique across the table.
//
// Invariants maintained by the store write entry points:
//   - status=completed ⇔ MarkdownContent non-nil ∧ ErrorMessage nil ∧ ConversionType non-nil
//   - status=failed ⇔ ErrorMessage non-nil
type Document struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	FileName         string          `gorm:"not null;size:255" json:"file_name"`
	FileType         string          `gorm:"size:50;index" json:"file_type"`
	FileSize         int64           `json:"file_size"`
	FileCreatedAt    time.Time       `json:"file_created_at"`
	FileModifiedTime time.Time       `json:"file_modified_time"`
	FilePath         string          `gorm:"uniqueIndex;not null" json:"file_path"`
	MarkdownContent  *string         `json:"-"`
	ConversionType   *ConversionType `json:"conversion_type,omitempty"`
	Status           DocumentStatus  `gorm:"not null;default:pending;size:50;index" json:"status"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	Source           string          `gorm:"size:255;index" json:"source"`
	SourceURL        *string         `json:"source_url,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Completed reports whether the document satisfies the completed-status
// invariant, not merely whether Status says so.
func (d *Document) Completed() bool {
	return d.Status == StatusCompleted &&
		d.MarkdownContent != nil &&
		d.ConversionType != nil &&
		d.ErrorMessage == nil
}
