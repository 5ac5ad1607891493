package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/TedCarlson/teamoptix-ops-sub000/api"
	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/logger"
)

// CommitSummary is the outcome of one commit attempt.
type CommitSummary struct {
	UploadSetID  string `json:"upload_set_id"`
	Status       string `json:"status"`
	Rows         int64  `json:"rows"`
	CommitPrefix string `json:"commit_prefix"`
	ManifestPath string `json:"manifest_path"`
	FailedFiles  int    `json:"failed_files"`
}

// commitFileOutcome pairs the manifest entry with the rows the file
// contributed.
type commitFileOutcome struct {
	result CommitFileResult
	rows   []RawRow
}

// CommitUploadSet re-parses the staged files, writes per-file artifacts and
// a manifest to the commit prefix and replaces the batch's rows in the row
// store. Per-file failures (download, header mismatch, artifact upload) are
// recorded and do not stop sibling files; a row-store failure is fatal and
// leaves the batch in `committing`, and a retry recovers through the
// delete-then-insert idempotency.
func (p *Pipeline) CommitUploadSet(ctx context.Context, uploadSetID string, anchorOverride string) (*CommitSummary, error) {
	batch, err := p.registry.GetByUploadSet(ctx, uploadSetID)
	if err != nil {
		return nil, err
	}
	anchor := batch.FiscalMonthAnchor
	if anchorOverride != "" {
		ref, err := ParseFiscalRef(anchorOverride)
		if err != nil {
			return nil, err
		}
		anchor = FiscalMonthAnchor(ref)
	}

	if err := p.registry.SetStatus(ctx, batch.BatchID, StatusCommitting); err != nil {
		return nil, err
	}

	stagePrefix := batch.StoragePrefix
	if stagePrefix == "" {
		stagePrefix = StagePrefix(batch.SourceSystem, anchor, batch.UploadSetID)
	}
	commitPrefix := CommitPrefix(batch.SourceSystem, anchor, batch.UploadSetID)

	keys, err := p.store.Walk(ctx, stagePrefix)
	if err != nil {
		return nil, err
	}

	outcomes := p.processFiles(ctx, batch.BatchID, commitPrefix, keys)

	var allRows []RawRow
	okFiles, failedFiles := 0, 0
	fileResults := make([]CommitFileResult, 0, len(outcomes))
	for _, o := range outcomes {
		fileResults = append(fileResults, o.result)
		if o.result.OK {
			okFiles++
			allRows = append(allRows, o.rows...)
		} else {
			failedFiles++
		}
	}

	// Single critical section per batch: clear prior rows, insert new ones.
	inserted, err := p.rows.Replace(ctx, batch.BatchID, batch.UploadSetID, allRows)
	if err != nil {
		// Fatal: the batch stays in `committing` for manual retry.
		return nil, fmt.Errorf("row store commit failed for upload set %s: %w", uploadSetID, err)
	}

	manifest := Manifest{
		UploadSetID:       batch.UploadSetID,
		SourceSystem:      batch.SourceSystem,
		FiscalMonthAnchor: anchor.Format(constants.DateFormat),
		GeneratedAt:       time.Now().UTC(),
		Files:             fileResults,
		TotalRows:         int(inserted),
		FailedFiles:       failedFiles,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	manifestPath := path.Join(commitPrefix, "manifest.json")
	if err := p.store.Upload(ctx, manifestPath, manifestBytes, detectContentType(manifestPath)); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	status := StatusCommitted
	switch {
	case okFiles == 0:
		status = StatusFailed
	case failedFiles > 0:
		status = StatusCommittedWithErrors
	}
	note := fmt.Sprintf("commit: %d rows from %d/%d files", inserted, okFiles, len(outcomes))
	if err := p.registry.FinishCommit(ctx, batch.BatchID, status, manifestPath, note); err != nil {
		return nil, err
	}

	logger.Audit("[Ingestion] committed upload set %s: status=%s rows=%d failed_files=%d", uploadSetID, status, inserted, failedFiles)

	return &CommitSummary{
		UploadSetID:  batch.UploadSetID,
		Status:       status,
		Rows:         inserted,
		CommitPrefix: commitPrefix,
		ManifestPath: manifestPath,
		FailedFiles:  failedFiles,
	}, nil
}

// processFiles runs per-file download/parse/artifact work on a bounded
// worker pool. Files share no mutable state until the final insert, so the
// only coordination is the results slice.
func (p *Pipeline) processFiles(ctx context.Context, batchID int64, commitPrefix string, keys []string) []commitFileOutcome {
	outcomes := make([]commitFileOutcome, len(keys))
	sem := make(chan struct{}, config.ParseWorkers)
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = p.processFile(ctx, batchID, commitPrefix, key)
		}(i, key)
	}
	wg.Wait()
	return outcomes
}

func (p *Pipeline) processFile(ctx context.Context, batchID int64, commitPrefix string, key string) commitFileOutcome {
	name := path.Base(key)
	out := commitFileOutcome{result: CommitFileResult{File: name}}

	if err := ctx.Err(); err != nil {
		out.result.Error = err.Error()
		return out
	}
	data, err := p.store.Download(ctx, key)
	if err != nil {
		out.result.Error = err.Error()
		return out
	}
	sheets, err := ParseWorkbook(name, data)
	if err != nil {
		out.result.Error = err.Error()
		return out
	}
	m := MatchWorksheet(sheets)
	if !m.Matched {
		out.result.Error = fmt.Sprintf("%s: expected %q, got %q", ErrHeaderMismatch, ExpectedFingerprint(), HeaderFingerprint(m.Headers))
		return out
	}
	out.result.Worksheet = m.Sheet

	var sheet Worksheet
	for _, sh := range sheets {
		if sh.Name == m.Sheet {
			sheet = sh
			break
		}
	}
	region, _, _ := detectFileRegion(sheet, m.HeaderRow, name)

	// Records are keyed by the file's own headers, not the expected list,
	// so unexpected extra columns survive verbatim.
	headers := make([]string, len(m.Headers))
	for i, h := range m.Headers {
		headers[i] = normalizeCell(h)
	}
	techIdx := headerIndex(m.Headers, techIDHeader)

	rows, _ := dataRows(sheet, m.HeaderRow)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		techID := ""
		if techIdx >= 0 && techIdx < len(r.Cells) {
			techID = normalizeCell(r.Cells[techIdx])
		}
		if techID == "" {
			// No natural key: the row cannot be committed. Counted, not
			// silently lost.
			out.result.SkippedRows++
			continue
		}
		payload := make(map[string]string, len(headers))
		for i, h := range headers {
			if i >= len(r.Cells) {
				break
			}
			if v := normalizeCell(r.Cells[i]); v != "" {
				payload[h] = v
			}
		}
		rec := artifactRecord{
			RowNum:  r.RowNum,
			TechID:  techID,
			Region:  region,
			Columns: headers,
			Values:  payload,
		}
		if err := enc.Encode(rec); err != nil {
			out.result.Error = fmt.Sprintf("failed to encode row %d: %v", r.RowNum, err)
			return out
		}
		out.rows = append(out.rows, RawRow{
			BatchID:    batchID,
			Region:     region,
			RowNum:     r.RowNum,
			SourceFile: name,
			TechID:     techID,
			Payload:    payload,
		})
	}

	artifactPath := path.Join(commitPrefix, name+".jsonl")
	if err := p.store.Upload(ctx, artifactPath, buf.Bytes(), detectContentType(artifactPath)); err != nil {
		out.result.Error = err.Error()
		out.rows = nil
		return out
	}
	out.result.OK = true
	out.result.Rows = len(out.rows)
	out.result.ArtifactPath = artifactPath
	return out
}

// CommitHandler handles POST /ingestion/commit.
func CommitHandler(p *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UploadSetID       string `json:"upload_set_id"`
			UploadID          string `json:"upload_id"` // legacy alias
			FiscalMonthAnchor string `json:"fiscal_month_anchor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		uploadSetID := strings.TrimSpace(req.UploadSetID)
		if uploadSetID == "" {
			uploadSetID = strings.TrimSpace(req.UploadID)
		}
		if uploadSetID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadSetID)
			return
		}
		summary, err := p.CommitUploadSet(r.Context(), uploadSetID, req.FiscalMonthAnchor)
		if errors.Is(err, ErrBatchNotFound) {
			api.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", summary)
	}
}
