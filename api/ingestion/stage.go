package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TedCarlson/teamoptix-ops-sub000/api"
	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
)

// StagedFile is one raw file handed to the stager.
type StagedFile struct {
	Name string
	Data []byte
}

func supportedUploadExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// StageUpload computes the fiscal anchor, creates the batch record and
// persists each file under the stage prefix. Per-file failures are reported
// individually; the call succeeds as long as the batch record exists, so
// callers must check per-file status before treating the batch as parseable.
func (p *Pipeline) StageUpload(ctx context.Context, sourceSystem string, refDate time.Time, files []StagedFile) (*Batch, []StagedFileResult, error) {
	anchor := FiscalMonthAnchor(refDate)
	uploadSetID := uuid.New().String()
	prefix := StagePrefix(sourceSystem, anchor, uploadSetID)

	batch, err := p.registry.Upsert(ctx, &Batch{
		UploadSetID:       uploadSetID,
		SourceSystem:      sourceSystem,
		FiscalRefDate:     refDate.UTC().Truncate(24 * time.Hour),
		FiscalMonthAnchor: anchor,
		Status:            StatusUploaded,
		StorageBucket:     p.bucket,
		StoragePrefix:     prefix,
	})
	if err != nil {
		return nil, nil, err
	}

	results := make([]StagedFileResult, 0, len(files))
	for _, f := range files {
		res := StagedFileResult{File: f.Name}
		if !supportedUploadExt(f.Name) {
			res.Error = fmt.Sprintf("unsupported file type: %s", filepath.Ext(f.Name))
			results = append(results, res)
			continue
		}
		key := path.Join(prefix, path.Base(f.Name))
		if err := p.store.Upload(ctx, key, f.Data, detectContentType(f.Name)); err != nil {
			res.Error = err.Error()
			api.LogError("stage upload of %s failed: %v", f.Name, err)
		} else {
			res.StoredPath = key
		}
		results = append(results, res)
	}
	return batch, results, nil
}

// UploadHandler accepts the multipart upload request: source_system,
// optional fiscal_ref_date and one or more files.
func UploadHandler(p *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseMultipartForm(100 << 20); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "Failed to parse multipart form: "+err.Error())
			return
		}
		sourceSystem := strings.TrimSpace(r.FormValue("source_system"))
		if sourceSystem == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingSourceSystem)
			return
		}
		refDate, err := ParseFiscalRef(r.FormValue("fiscal_ref_date"))
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		fhs := r.MultipartForm.File["file"]
		if len(fhs) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, "No file uploaded")
			return
		}

		files := make([]StagedFile, 0, len(fhs))
		for _, fh := range fhs {
			f, err := fh.Open()
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "Failed to open file "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "Failed to read file "+fh.Filename)
				return
			}
			files = append(files, StagedFile{Name: fh.Filename, Data: data})
		}

		batch, results, err := p.StageUpload(ctx, sourceSystem, refDate, files)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"upload_set_id":       batch.UploadSetID,
			"batch_id":            batch.BatchID,
			"fiscal_month_anchor": batch.FiscalMonthAnchor.Format(constants.DateFormat),
			"files":               results,
		})
	}
}
