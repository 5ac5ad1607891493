package ingestion

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TedCarlson/teamoptix-ops-sub000/internal/serviceiface"
)

type IngestionService struct {
	config map[string]interface{}
	db     *sql.DB
	pool   *pgxpool.Pool
}

func NewIngestionService(cfg map[string]interface{}, db *sql.DB, pool *pgxpool.Pool) serviceiface.Service {
	return &IngestionService{config: cfg, db: db, pool: pool}
}

func (s *IngestionService) Name() string {
	return "ingestion"
}

func (s *IngestionService) Start() error {
	port := ":7143"
	if s.config != nil {
		if p, ok := s.config["port"].(string); ok && p != "" {
			port = p
		}
	}
	go StartIngestionService(s.db, s.pool, port)
	return nil
}

func (s *IngestionService) Stop() error {
	// The HTTP server shuts down with the process.
	return nil
}
