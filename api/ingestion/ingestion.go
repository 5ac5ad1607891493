package ingestion

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TedCarlson/teamoptix-ops-sub000/api"
	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
)

// BatchesHandler handles GET /ingestion/batches for the dashboard
// collaborator.
func BatchesHandler(p *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		batches, err := p.registry.List(r.Context(), limit)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrFailedToQuery+": "+err.Error())
			return
		}
		out := make([]map[string]interface{}, 0, len(batches))
		for _, b := range batches {
			row := map[string]interface{}{
				"batch_id":            b.BatchID,
				"upload_set_id":       b.UploadSetID,
				"source_system":       b.SourceSystem,
				"fiscal_month_anchor": b.FiscalMonthAnchor.Format(constants.DateFormat),
				"status":              b.Status,
				"storage_prefix":      b.StoragePrefix,
				"created_at":          b.CreatedAt.Format(constants.DateTimeFormat),
				"updated_at":          b.UpdatedAt.Format(constants.DateTimeFormat),
			}
			if b.ManifestPath.Valid {
				row["manifest_path"] = b.ManifestPath.String
			}
			if b.Note.Valid {
				row["note"] = b.Note.String
			}
			out = append(out, row)
		}
		api.RespondWithPayload(w, true, "", out)
	}
}

// NewRouter registers the pipeline's routes.
func NewRouter(p *Pipeline) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ingestion/upload", UploadHandler(p)).Methods("POST")
	router.HandleFunc("/ingestion/preview", PreviewHandler(p)).Methods("GET")
	router.HandleFunc("/ingestion/commit", CommitHandler(p)).Methods("POST")
	router.HandleFunc("/ingestion/undo", UndoHandler(p)).Methods("POST")
	router.HandleFunc("/ingestion/batches", BatchesHandler(p)).Methods("GET")
	router.HandleFunc("/ingestion/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ingestion Service is healthy"))
	}).Methods("GET")
	return router
}

// StartIngestionService builds the pipeline from environment-provided
// storage config and the injected database handles, then serves until the
// process exits.
func StartIngestionService(db *sql.DB, pool *pgxpool.Pool, port string) {
	storageCfg := StorageConfigFromEnv()
	store, err := NewObjectStore(context.Background(), storageCfg)
	if err != nil {
		log.Fatalf("Ingestion Service storage init failed: %v", err)
	}
	p := NewPipeline(store, NewPgBatchRegistry(db), NewPgRowStore(pool), storageCfg.Bucket)

	router := NewRouter(p)
	api.LogInfo("Ingestion Service started on %s", port)
	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("Ingestion Service failed: %v", err)
	}
}
