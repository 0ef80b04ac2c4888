package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/markhive/markhive/pkg/models"
)

// ============================================
// INGEST STATE OPERATIONS
// ============================================

// GetOrCreateIngestState returns the ingest state for (source, scope),
// creating a fresh record on first use of the scope.
func (s *GORMStore) GetOrCreateIngestState(ctx context.Context, source, scopeKey string) (*models.IngestState, error) {
	var state models.IngestState
	err := s.db.WithContext(ctx).
		Where("source = ? AND scope_key = ?", source, scopeKey).
		First(&state).Error
	if err == nil {
		return &state, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	state = models.IngestState{Source: source, ScopeKey: scopeKey}
	if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
		// A concurrent run may have created the row between the lookup and
		// the insert; the unique (source, scope_key) index resolves the race.
		if isUniqueConstraintError(err) {
			err = s.db.WithContext(ctx).
				Where("source = ? AND scope_key = ?", source, scopeKey).
				First(&state).Error
			if err != nil {
				return nil, err
			}
			return &state, nil
		}
		return nil, err
	}
	return &state, nil
}

// BeginRun records the start of an ingestion run: last_started_at is set and
// the previous error message is cleared.
func (s *GORMStore) BeginRun(ctx context.Context, id uint, startedAt time.Time) error {
	return s.updateIngestState(ctx, id, map[string]any{
		"last_started_at":    startedAt,
		"last_error_message": nil,
	})
}

// SetTotalFiles persists the scan result size for a run in progress.
func (s *GORMStore) SetTotalFiles(ctx context.Context, id uint, total int) error {
	return s.updateIngestState(ctx, id, map[string]any{"total_files": total})
}

// FinishRun writes the final counters and last_ended_at. It runs in the
// coordinator's finalize path regardless of how the run ended.
func (s *GORMStore) FinishRun(ctx context.Context, id uint, processed, skipped, errCount int, endedAt time.Time) error {
	return s.updateIngestState(ctx, id, map[string]any{
		"processed":     processed,
		"skipped":       skipped,
		"errors":        errCount,
		"last_ended_at": endedAt,
	})
}

// AdvanceCursor moves the incremental watermark forward. Called only after a
// clean (non-cancelled, non-critical) completion.
func (s *GORMStore) AdvanceCursor(ctx context.Context, id uint, to time.Time) error {
	return s.updateIngestState(ctx, id, map[string]any{"cursor_updated_at": to})
}

// SetLastError persists the critical error message for a run.
func (s *GORMStore) SetLastError(ctx context.Context, id uint, msg string) error {
	return s.updateIngestState(ctx, id, map[string]any{"last_error_message": msg})
}

// GetIngestState returns the state row for (source, scope) without creating it.
func (s *GORMStore) GetIngestState(ctx context.Context, source, scopeKey string) (*models.IngestState, error) {
	var state models.IngestState
	err := s.db.WithContext(ctx).
		Where("source = ? AND scope_key = ?", source, scopeKey).
		First(&state).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrIngestStateNotFound)
	}
	return &state, nil
}

func (s *GORMStore) updateIngestState(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&models.IngestState{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrIngestStateNotFound
	}
	return nil
}
