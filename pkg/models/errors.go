package models

import "errors"

// Common errors for document and ingest state operations.
var (
	// Document errors
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDuplicateDocument = errors.New("document already exists for this path")
	ErrDocumentNotFailed = errors.New("document is not in a failed state")

	// Ingest state errors
	ErrIngestStateNotFound = errors.New("ingest state not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
