package storage

import (
	"context"
	"fmt"
	"time"

	"vlaradar/internal/models"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Upsert(ctx context.Context, run models.CrawlRun) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO crawl_runs (run_id, mode, status, found, filtered, duplicates, added, failed, started_at, finished_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id)
DO UPDATE SET
  mode = EXCLUDED.mode,
  status = EXCLUDED.status,
  found = EXCLUDED.found,
  filtered = EXCLUDED.filtered,
  duplicates = EXCLUDED.duplicates,
  added = EXCLUDED.added,
  failed = EXCLUDED.failed,
  finished_at = EXCLUDED.finished_at`,
		run.RunID, run.Mode, run.Status, run.Found, run.Filtered, run.Duplicates,
		run.Added, run.Failed, nullableTime(run.StartedAt), nullableTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert crawl run: %w", err)
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, runID string) (models.CrawlRun, error) {
	var run models.CrawlRun
	var started, finished *time.Time
	err := r.db.Pool.QueryRow(ctx, `
SELECT run_id::text, mode, status, found, filtered, duplicates, added, failed, started_at, finished_at
FROM crawl_runs WHERE run_id=$1::uuid`, runID).Scan(
		&run.RunID, &run.Mode, &run.Status, &run.Found, &run.Filtered,
		&run.Duplicates, &run.Added, &run.Failed, &started, &finished,
	)
	if err != nil {
		return models.CrawlRun{}, fmt.Errorf("get crawl run: %w", err)
	}
	if started != nil {
		run.StartedAt = *started
	}
	if finished != nil {
		run.FinishedAt = *finished
	}
	return run, nil
}

func (r *RunRepo) List(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id::text, mode, status, found, filtered, duplicates, added, failed, started_at, finished_at
FROM crawl_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.CrawlRun, 0)
	for rows.Next() {
		var run models.CrawlRun
		var started, finished *time.Time
		if err := rows.Scan(
			&run.RunID, &run.Mode, &run.Status, &run.Found, &run.Filtered,
			&run.Duplicates, &run.Added, &run.Failed, &started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan crawl run: %w", err)
		}
		if started != nil {
			run.StartedAt = *started
		}
		if finished != nil {
			run.FinishedAt = *finished
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl runs: %w", err)
	}
	return out, nil
}
