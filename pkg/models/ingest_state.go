package models

import "time"

// IngestState tracks resumable ingestion history for one (source, scope)
// pair. For the local filesystem the scope key is the absolute normalized
// folder path.
//
// CursorUpdatedAt is the incremental-ingest watermark: when the user does
// not supply an explicit lower bound, the next run only considers files
// modified on or after the cursor's day. It advances only on clean
// completion (not cancelled, no critical error).
type IngestState struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Source           string     `gorm:"not null;size:255;uniqueIndex:idx_ingest_scope" json:"source"`
	ScopeKey         string     `gorm:"not null;uniqueIndex:idx_ingest_scope" json:"scope_key"`
	LastStartedAt    *time.Time `json:"last_started_at,omitempty"`
	LastEndedAt      *time.Time `json:"last_ended_at,omitempty"`
	LastErrorMessage *string    `json:"last_error_message,omitempty"`
	CursorUpdatedAt  *time.Time `json:"cursor_updated_at,omitempty"`
	TotalFiles       int        `json:"total_files"`
	Processed        int        `json:"processed"`
	Skipped          int        `json:"skipped"`
	Errors           int        `json:"errors"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for IngestState.
func (IngestState) TableName() string {
	return "ingest_state"
}
