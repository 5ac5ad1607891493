package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/logger"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/serviceiface"
)

const defaultJanitorSchedule = "*/5 * * * *"

// JanitorService periodically flags batches stuck in `committing`. A fatal
// row-store failure (or a crash) leaves a batch in that transient state;
// nothing resets it automatically, so the janitor surfaces it for an
// operator to retry the commit or undo.
type JanitorService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	cron   *cron.Cron
}

func NewJanitorService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &JanitorService{config: cfg, pool: pool}
}

func (s *JanitorService) Name() string {
	return "jobs"
}

func (s *JanitorService) Start() error {
	schedule := defaultJanitorSchedule
	staleMinutes := config.StaleCommitMinutes
	if s.config != nil {
		if v, ok := s.config["janitor_schedule"].(string); ok && v != "" {
			schedule = v
		}
		if v, ok := s.config["stale_commit_minutes"].(int); ok && v > 0 {
			staleMinutes = v
		}
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() {
		s.flagStaleCommits(staleMinutes)
	}); err != nil {
		return fmt.Errorf("failed to schedule janitor: %v", err)
	}
	s.cron.Start()
	log.Println("Jobs service started, stale-commit janitor scheduled", schedule)
	return nil
}

func (s *JanitorService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return nil
}

func (s *JanitorService) flagStaleCommits(staleMinutes int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		UPDATE teamoptix.ingest_batches
		SET note = 'stuck in committing since ' || to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')
		WHERE status = 'committing'
		  AND updated_at < now() - make_interval(mins => $1)
		RETURNING upload_set_id`, staleMinutes)
	if err != nil {
		log.Printf("[ERROR] janitor query failed: %v", err)
		return
	}
	defer rows.Close()

	var flagged []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Printf("[ERROR] janitor scan failed: %v", err)
			return
		}
		flagged = append(flagged, id)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[ERROR] janitor rows failed: %v", err)
		return
	}
	for _, id := range flagged {
		logger.Audit("[Janitor] batch %s stuck in committing beyond %d minutes", id, staleMinutes)
	}
}
