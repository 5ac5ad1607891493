package ingestion

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TedCarlson/teamoptix-ops-sub000/api"
	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
)

// PreviewUploadSet lists the staged files and returns per-file diagnostics
// without touching the row store, the batch status or any stored object. It
// is safe to call repeatedly; the validation gate uses it to decide whether
// to commit.
func (p *Pipeline) PreviewUploadSet(ctx context.Context, uploadSetID string) ([]PreviewFileResult, error) {
	batch, err := p.registry.GetByUploadSet(ctx, uploadSetID)
	if err != nil {
		return nil, err
	}
	keys, err := p.store.Walk(ctx, batch.StoragePrefix)
	if err != nil {
		return nil, err
	}

	expected := ExpectedFingerprint()
	results := make([]PreviewFileResult, 0, len(keys))
	for _, key := range keys {
		res := PreviewFileResult{File: path.Base(key), ExpectedFingerprint: expected}
		data, err := p.store.Download(ctx, key)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		sheets, err := ParseWorkbook(res.File, data)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		m := MatchWorksheet(sheets)
		res.HeaderMatch = m.Matched
		res.ActualFingerprint = HeaderFingerprint(m.Headers)
		res.RequiredCoverage = CoversRequiredHeaders(m.Headers)
		if !m.Matched {
			results = append(results, res)
			continue
		}
		res.MatchedWorksheet = m.Sheet

		var sheet Worksheet
		for _, sh := range sheets {
			if sh.Name == m.Sheet {
				sheet = sh
				break
			}
		}
		region, rule, ok := detectFileRegion(sheet, m.HeaderRow, res.File)
		if ok {
			res.Region = region
			res.RegionRule = rule
		}

		rows, _ := dataRows(sheet, m.HeaderRow)
		res.EstimatedRows = len(rows)
		techIdx := headerIndex(m.Headers, techIDHeader)
		for _, r := range rows {
			if techIdx < 0 || techIdx >= len(r.Cells) || normalizeCell(r.Cells[techIdx]) == "" {
				res.SkippedRows++
			}
		}
		res.EstimatedRows -= res.SkippedRows
		res.ColumnSums = columnSums(m.Headers, rows)
		results = append(results, res)
	}
	return results, nil
}

// headerIndex finds the position of a header in the file's own header row,
// using the normalized compare.
func headerIndex(headers []string, want string) int {
	target := normalizeHeader(want)
	for i, h := range headers {
		if normalizeHeader(h) == target {
			return i
		}
	}
	return -1
}

// columnSums adds up every numeric-looking cell per column with exact
// decimal arithmetic. The gate reconciles these against the totals carried
// by the excluded footer rows.
func columnSums(headers []string, rows []extractedRow) map[string]string {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, r := range rows {
		for i, cell := range r.Cells {
			if i >= len(headers) {
				break
			}
			header := normalizeCell(headers[i])
			v := strings.ReplaceAll(normalizeCell(cell), ",", "")
			v = strings.TrimSuffix(v, "%")
			if v == "" {
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				continue
			}
			sums[header] = sums[header].Add(d)
			counts[header]++
		}
	}
	out := make(map[string]string, len(sums))
	for h, d := range sums {
		if counts[h] > 0 {
			out[h] = d.String()
		}
	}
	return out
}

// PreviewHandler handles GET /ingestion/preview?upload_set_id=...
func PreviewHandler(p *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploadSetID := strings.TrimSpace(r.URL.Query().Get("upload_set_id"))
		if uploadSetID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadSetID)
			return
		}
		results, err := p.PreviewUploadSet(r.Context(), uploadSetID)
		if errors.Is(err, ErrBatchNotFound) {
			api.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", results)
	}
}
