package ingestion

import (
	"database/sql"
	"errors"
	"time"
)

// Batch statuses. A batch never leaves the table; undo resets it to
// StatusUploaded rather than deleting it.
const (
	StatusUploaded            = "uploaded"
	StatusCommitting          = "committing"
	StatusCommitted           = "committed"
	StatusCommittedWithErrors = "committed_with_errors"
	StatusFailed              = "failed"
)

// Undo scopes
const (
	UndoScopeRaw    = "raw"
	UndoScopeCommit = "commit"
	UndoScopeAll    = "all"
)

// Sentinel errors used for mapping to user-friendly messages
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrHeaderMismatch    = errors.New("no worksheet matched the expected headers")
	ErrInvalidUndoScope  = errors.New("undo scope must be raw, commit or all")
)

// Batch is one ingestion attempt for one upload set.
type Batch struct {
	BatchID           int64          `json:"batch_id"`
	UploadSetID       string         `json:"upload_set_id"`
	SourceSystem      string         `json:"source_system"`
	FiscalRefDate     time.Time      `json:"fiscal_ref_date"`
	FiscalMonthAnchor time.Time      `json:"fiscal_month_anchor"`
	Status            string         `json:"status"`
	StorageBucket     string         `json:"storage_bucket"`
	StoragePrefix     string         `json:"storage_prefix"`
	ManifestPath      sql.NullString `json:"-"`
	Note              sql.NullString `json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// RawRow is one committed data row. Payload keeps every extracted column
// keyed by the source header string, unexpected extras included.
type RawRow struct {
	BatchID    int64             `json:"batch_id"`
	Region     string            `json:"region"`
	RowNum     int               `json:"row_num"`
	SourceFile string            `json:"source_file"`
	TechID     string            `json:"tech_id"`
	Payload    map[string]string `json:"payload"`
}

// StagedFileResult is the per-file outcome of an upload call.
type StagedFileResult struct {
	File       string `json:"file"`
	StoredPath string `json:"stored_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PreviewFileResult carries per-file diagnostics for the validation gate.
type PreviewFileResult struct {
	File                string            `json:"file"`
	HeaderMatch         bool              `json:"header_match"`
	MatchedWorksheet    string            `json:"matched_worksheet,omitempty"`
	RequiredCoverage    bool              `json:"required_coverage"`
	ExpectedFingerprint string            `json:"expected_fingerprint"`
	ActualFingerprint   string            `json:"actual_fingerprint"`
	Region              string            `json:"region,omitempty"`
	RegionRule          string            `json:"region_rule,omitempty"`
	EstimatedRows       int               `json:"estimated_rows"`
	SkippedRows         int               `json:"skipped_rows"`
	ColumnSums          map[string]string `json:"column_sums,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// CommitFileResult is recorded per file in the commit manifest.
type CommitFileResult struct {
	File         string `json:"file"`
	OK           bool   `json:"ok"`
	Worksheet    string `json:"worksheet,omitempty"`
	Rows         int    `json:"rows"`
	SkippedRows  int    `json:"skipped_rows"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Manifest is the commit-attempt summary written next to the per-file
// artifacts under the commit prefix.
type Manifest struct {
	UploadSetID       string             `json:"upload_set_id"`
	SourceSystem      string             `json:"source_system"`
	FiscalMonthAnchor string             `json:"fiscal_month_anchor"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Files             []CommitFileResult `json:"files"`
	TotalRows         int                `json:"total_rows"`
	FailedFiles       int                `json:"failed_files"`
}

// artifactRecord is one line of a per-file .jsonl commit artifact.
type artifactRecord struct {
	RowNum  int               `json:"row_num"`
	TechID  string            `json:"tech_id"`
	Region  string            `json:"region,omitempty"`
	Columns []string          `json:"columns"`
	Values  map[string]string `json:"values"`
}
