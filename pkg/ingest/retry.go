package ingest

import (
	"context"
	"errors"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/scan"
)

// RetryDocument re-runs conversion for a single failed document and updates
// its row with the new outcome. Documents in any other status are rejected
// with models.ErrDocumentNotFailed. The file is re-probed first so a retry
// of a since-deleted file fails with a fresh error message instead of the
// stale one.
func (c *Coordinator) RetryDocument(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := c.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusFailed {
		return nil, models.ErrDocumentNotFailed
	}

	meta, err := scan.Probe(doc.FilePath)
	if err != nil {
		if errors.Is(err, scan.ErrMetadataUnavailable) {
			msg := err.Error()
			if uerr := c.store.UpdateConversionOutcome(ctx, id, nil, nil, &msg); uerr != nil {
				return nil, uerr
			}
			return c.store.GetDocument(ctx, id)
		}
		return nil, err
	}

	res := c.convertFile(ctx, meta)
	if res.Success {
		if err := c.store.UpdateConversionOutcome(ctx, id, &res.Content, &res.ConversionType, nil); err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "document retry succeeded",
			logger.KeyPath, doc.FilePath, "document_id", id)
	} else {
		msg := res.Error
		if err := c.store.UpdateConversionOutcome(ctx, id, nil, nil, &msg); err != nil {
			return nil, err
		}
		logger.WarnCtx(ctx, "document retry failed",
			logger.KeyPath, doc.FilePath, "document_id", id, logger.KeyError, msg)
	}

	return c.store.GetDocument(ctx, id)
}
