// Package models defines the persistent data model for Markhive:
// indexed documents and per-scope ingestion state.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&Document{},
		&IngestState{},
	}
}
