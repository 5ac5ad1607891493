package ingestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
)

// BatchRegistry is the state container for batch records. Lookups by
// upload_set_id resolve to at most one batch (upsert-on-conflict).
type BatchRegistry interface {
	Upsert(ctx context.Context, b *Batch) (*Batch, error)
	GetByUploadSet(ctx context.Context, uploadSetID string) (*Batch, error)
	GetByID(ctx context.Context, batchID int64) (*Batch, error)
	SetStatus(ctx context.Context, batchID int64, status string) error
	FinishCommit(ctx context.Context, batchID int64, status, manifestPath, note string) error
	ResetAfterUndo(ctx context.Context, batchID int64, note string) error
	List(ctx context.Context, limit int) ([]Batch, error)
}

// RowStore owns the committed raw rows. Replace and DeleteForBatch take a
// per-batch advisory lock so a commit and an undo against the same upload
// set cannot interleave in the row store.
type RowStore interface {
	// Replace deletes any prior rows for the batch and bulk-inserts the new
	// ones in one transaction. Idempotent re-commit depends on it.
	Replace(ctx context.Context, batchID int64, uploadSetID string, rows []RawRow) (int64, error)
	DeleteForBatch(ctx context.Context, batchID int64, uploadSetID string) (int64, error)
	CountForBatch(ctx context.Context, batchID int64) (int64, error)
}

// pqUserFriendlyMessage maps Postgres errors on registry writes to messages
// safe to show an operator.
func pqUserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err.Error()
	}
	switch pqErr.Code {
	case "23505":
		return "A batch with the same upload set already exists."
	case "23503":
		return "Some referenced data was not found (please refresh and try again)."
	case "23514":
		return "Some fields have invalid values. Please check and try again."
	default:
		return "Database error while processing the request. Please try again."
	}
}

// ---------------------------
// Postgres batch registry (database/sql)
// ---------------------------

type pgBatchRegistry struct {
	db *sql.DB
}

func NewPgBatchRegistry(db *sql.DB) BatchRegistry {
	return &pgBatchRegistry{db: db}
}

const batchColumns = `batch_id, upload_set_id, source_system, fiscal_ref_date, fiscal_month_anchor,
	status, storage_bucket, storage_prefix, manifest_path, note, created_at, updated_at`

func scanBatch(row interface{ Scan(...interface{}) error }) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.BatchID, &b.UploadSetID, &b.SourceSystem, &b.FiscalRefDate, &b.FiscalMonthAnchor,
		&b.Status, &b.StorageBucket, &b.StoragePrefix, &b.ManifestPath, &b.Note, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgBatchRegistry) Upsert(ctx context.Context, b *Batch) (*Batch, error) {
	q := `
		INSERT INTO teamoptix.ingest_batches
			(upload_set_id, source_system, fiscal_ref_date, fiscal_month_anchor, status, storage_bucket, storage_prefix)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (upload_set_id) DO UPDATE SET
			source_system = EXCLUDED.source_system,
			fiscal_ref_date = EXCLUDED.fiscal_ref_date,
			fiscal_month_anchor = EXCLUDED.fiscal_month_anchor,
			storage_bucket = EXCLUDED.storage_bucket,
			storage_prefix = EXCLUDED.storage_prefix,
			updated_at = now()
		RETURNING ` + batchColumns
	out, err := scanBatch(r.db.QueryRowContext(ctx, q,
		b.UploadSetID, b.SourceSystem, b.FiscalRefDate, b.FiscalMonthAnchor, b.Status, b.StorageBucket, b.StoragePrefix))
	if err != nil {
		return nil, fmt.Errorf("upsert batch: %s", pqUserFriendlyMessage(err))
	}
	return out, nil
}

func (r *pgBatchRegistry) GetByUploadSet(ctx context.Context, uploadSetID string) (*Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM teamoptix.ingest_batches WHERE upload_set_id = $1`
	b, err := scanBatch(r.db.QueryRowContext(ctx, q, uploadSetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

func (r *pgBatchRegistry) GetByID(ctx context.Context, batchID int64) (*Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM teamoptix.ingest_batches WHERE batch_id = $1`
	b, err := scanBatch(r.db.QueryRowContext(ctx, q, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

func (r *pgBatchRegistry) SetStatus(ctx context.Context, batchID int64, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE teamoptix.ingest_batches SET status = $1, updated_at = now() WHERE batch_id = $2`,
		status, batchID)
	if err != nil {
		return fmt.Errorf("set batch status: %s", pqUserFriendlyMessage(err))
	}
	return nil
}

func (r *pgBatchRegistry) FinishCommit(ctx context.Context, batchID int64, status, manifestPath, note string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE teamoptix.ingest_batches
		SET status = $1, manifest_path = $2, note = NULLIF($3, ''), updated_at = now()
		WHERE batch_id = $4`,
		status, manifestPath, note, batchID)
	if err != nil {
		return fmt.Errorf("finish commit: %s", pqUserFriendlyMessage(err))
	}
	return nil
}

func (r *pgBatchRegistry) ResetAfterUndo(ctx context.Context, batchID int64, note string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE teamoptix.ingest_batches
		SET status = $1, manifest_path = NULL, note = NULLIF($2, ''), updated_at = now()
		WHERE batch_id = $3`,
		StatusUploaded, note, batchID)
	if err != nil {
		return fmt.Errorf("reset batch after undo: %s", pqUserFriendlyMessage(err))
	}
	return nil
}

func (r *pgBatchRegistry) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM teamoptix.ingest_batches ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ---------------------------
// Postgres row store (pgx, chunked CopyFrom)
// ---------------------------

type pgRowStore struct {
	pool *pgxpool.Pool
}

func NewPgRowStore(pool *pgxpool.Pool) RowStore {
	return &pgRowStore{pool: pool}
}

var rawRowColumns = []string{"batch_id", "region", "row_num", "source_file", "tech_id", "payload"}

func (s *pgRowStore) Replace(ctx context.Context, batchID int64, uploadSetID string, rows []RawRow) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	// Serialize against concurrent commit/undo on the same upload set.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, uploadSetID); err != nil {
		return 0, fmt.Errorf("failed to take batch lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM teamoptix.ingest_raw_rows WHERE batch_id = $1`, batchID); err != nil {
		return 0, fmt.Errorf("failed to clear prior rows: %w", err)
	}

	var inserted int64
	for start := 0; start < len(rows); start += config.RowInsertChunkSize {
		end := start + config.RowInsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		copyRows := make([][]interface{}, 0, len(chunk))
		for _, r := range chunk {
			payload, err := json.Marshal(r.Payload)
			if err != nil {
				return 0, fmt.Errorf("failed to encode payload for row %d: %w", r.RowNum, err)
			}
			copyRows = append(copyRows, []interface{}{batchID, r.Region, r.RowNum, r.SourceFile, r.TechID, payload})
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"teamoptix", "ingest_raw_rows"}, rawRowColumns, pgx.CopyFromRows(copyRows))
		if err != nil {
			return 0, fmt.Errorf("bulk insert failed: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return inserted, nil
}

func (s *pgRowStore) DeleteForBatch(ctx context.Context, batchID int64, uploadSetID string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, uploadSetID); err != nil {
		return 0, fmt.Errorf("failed to take batch lock: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM teamoptix.ingest_raw_rows WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return tag.RowsAffected(), nil
}

func (s *pgRowStore) CountForBatch(ctx context.Context, batchID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM teamoptix.ingest_raw_rows WHERE batch_id = $1`, batchID).Scan(&n)
	return n, err
}
