package ingestion

import (
	"context"
	"errors"
)

// Pipeline wires the ingestion stages to their stores. Everything it needs
// is injected; handlers are closures over it, one per stage, each invoked
// independently over the upload-set identifier.
type Pipeline struct {
	store    ObjectStore
	registry BatchRegistry
	rows     RowStore
	bucket   string
}

func NewPipeline(store ObjectStore, registry BatchRegistry, rows RowStore, bucket string) *Pipeline {
	return &Pipeline{store: store, registry: registry, rows: rows, bucket: bucket}
}

// resolveBatch looks a batch up by upload set id, falling back to the
// internal batch id for legacy callers.
func (p *Pipeline) resolveBatch(ctx context.Context, uploadSetID string, batchID int64) (*Batch, error) {
	if uploadSetID != "" {
		b, err := p.registry.GetByUploadSet(ctx, uploadSetID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrBatchNotFound) {
			return nil, err
		}
	}
	if batchID > 0 {
		return p.registry.GetByID(ctx, batchID)
	}
	return nil, ErrBatchNotFound
}
