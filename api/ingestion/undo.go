package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/TedCarlson/teamoptix-ops-sub000/api"
	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/logger"
)

// UndoRequest identifies the batch (upload set id, or internal batch id as
// a fallback) and how much of the commit to reverse.
type UndoRequest struct {
	UploadSetID       string `json:"upload_set_id"`
	BatchID           int64  `json:"batch_id"`
	FiscalMonthAnchor string `json:"fiscal_month_anchor"`
	Scope             string `json:"scope"`
}

// UndoResult reports what was removed from each store.
type UndoResult struct {
	UploadSetID    string `json:"upload_set_id"`
	DeletedRawRows int64  `json:"deleted_raw_rows"`
	RemovedObjects int    `json:"removed_objects"`
	Status         string `json:"status"`
}

// UndoCommit reverses a commit. Every scope clears the batch's raw rows;
// scopes `commit` and `all` additionally remove the commit artifacts from
// storage. Any listing or deletion error aborts the whole undo before the
// batch record is touched: a half-reversed commit is worse than a commit
// left fully intact.
func (p *Pipeline) UndoCommit(ctx context.Context, req UndoRequest) (*UndoResult, error) {
	scope := strings.ToLower(strings.TrimSpace(req.Scope))
	switch scope {
	case UndoScopeRaw, UndoScopeCommit, UndoScopeAll:
	default:
		return nil, ErrInvalidUndoScope
	}

	batch, err := p.resolveBatch(ctx, strings.TrimSpace(req.UploadSetID), req.BatchID)
	if err != nil {
		return nil, err
	}

	deletedRows, err := p.rows.DeleteForBatch(ctx, batch.BatchID, batch.UploadSetID)
	if err != nil {
		return nil, err
	}

	removedObjects := 0
	if scope == UndoScopeCommit || scope == UndoScopeAll {
		prefix, err := p.commitPrefixFor(batch, req.FiscalMonthAnchor)
		if err != nil {
			return nil, err
		}
		keys, err := p.store.Walk(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for start := 0; start < len(keys); start += config.StorageDeleteBatchSize {
			end := start + config.StorageDeleteBatchSize
			if end > len(keys) {
				end = len(keys)
			}
			if err := p.store.Remove(ctx, keys[start:end]); err != nil {
				return nil, err
			}
			removedObjects += end - start
		}
	}

	note := fmt.Sprintf("undo %s: removed %d raw rows, %d storage objects", scope, deletedRows, removedObjects)
	if err := p.registry.ResetAfterUndo(ctx, batch.BatchID, note); err != nil {
		return nil, err
	}

	logger.Audit("[Ingestion] undo upload set %s scope=%s rows=%d objects=%d", batch.UploadSetID, scope, deletedRows, removedObjects)

	return &UndoResult{
		UploadSetID:    batch.UploadSetID,
		DeletedRawRows: deletedRows,
		RemovedObjects: removedObjects,
		Status:         StatusUploaded,
	}, nil
}

// commitPrefixFor derives the commit prefix from the stored manifest path
// when available, or recomputes it from the anchor and the upload set id.
func (p *Pipeline) commitPrefixFor(batch *Batch, anchorOverride string) (string, error) {
	if batch.ManifestPath.Valid && batch.ManifestPath.String != "" {
		return path.Dir(batch.ManifestPath.String), nil
	}
	anchor := batch.FiscalMonthAnchor
	if anchorOverride != "" {
		ref, err := ParseFiscalRef(anchorOverride)
		if err != nil {
			return "", err
		}
		anchor = FiscalMonthAnchor(ref)
	}
	return CommitPrefix(batch.SourceSystem, anchor, batch.UploadSetID), nil
}

// UndoHandler handles POST /ingestion/undo.
func UndoHandler(p *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UndoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		result, err := p.UndoCommit(r.Context(), req)
		if errors.Is(err, ErrInvalidUndoScope) {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrBatchNotFound) {
			api.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", result)
	}
}
