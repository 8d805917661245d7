package storage

import (
	"context"
	"fmt"

	"vlaradar/internal/models"
)

// PaperRepo is the local crawl ledger. The workspace database stays the
// source of truth for readers; this table tracks what each run did and
// where every paper ended up.
type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

func (r *PaperRepo) Upsert(ctx context.Context, runID string, p models.Paper) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO papers (paper_id, run_id, title, authors, year, abstract, url, pdf_url, doi, venue, source,
                    published, citations, influential_citations, impact, recommend_score,
                    recommend_rationale, notion_page_id, status, fail_reason)
VALUES ($1, NULLIF($2,'')::uuid, $3, NULLIF($4,''), $5, NULLIF($6,''), NULLIF($7,''), NULLIF($8,''),
        NULLIF($9,''), NULLIF($10,''), NULLIF($11,''), $12, $13, $14, $15, $16, NULLIF($17,''),
        NULLIF($18,''), $19, NULLIF($20,''))
ON CONFLICT (paper_id)
DO UPDATE SET
  run_id = EXCLUDED.run_id,
  title = EXCLUDED.title,
  authors = COALESCE(EXCLUDED.authors, papers.authors),
  year = COALESCE(EXCLUDED.year, papers.year),
  abstract = COALESCE(EXCLUDED.abstract, papers.abstract),
  url = COALESCE(EXCLUDED.url, papers.url),
  pdf_url = COALESCE(EXCLUDED.pdf_url, papers.pdf_url),
  doi = COALESCE(EXCLUDED.doi, papers.doi),
  venue = COALESCE(EXCLUDED.venue, papers.venue),
  source = COALESCE(EXCLUDED.source, papers.source),
  published = COALESCE(EXCLUDED.published, papers.published),
  citations = COALESCE(EXCLUDED.citations, papers.citations),
  influential_citations = COALESCE(EXCLUDED.influential_citations, papers.influential_citations),
  impact = COALESCE(EXCLUDED.impact, papers.impact),
  recommend_score = COALESCE(EXCLUDED.recommend_score, papers.recommend_score),
  recommend_rationale = COALESCE(EXCLUDED.recommend_rationale, papers.recommend_rationale),
  notion_page_id = COALESCE(EXCLUDED.notion_page_id, papers.notion_page_id),
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  updated_at = NOW()`,
		p.PaperID, runID, p.Title, joinList(p.Authors), p.Year, p.Abstract, p.URL, p.PDFURL,
		p.DOI, p.Venue, p.Source, nullableTime(p.Published), p.Citations, p.InfluentialCitations,
		p.ImpactFactor, p.RecommendScore, p.RecommendRationale, p.NotionPageID, p.Status, p.FailReason,
	)
	if err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}
	return nil
}

func (r *PaperRepo) UpdateStatus(ctx context.Context, paperID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE papers SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE paper_id=$1`,
		paperID, status, failReason)
	if err != nil {
		return fmt.Errorf("update paper status: %w", err)
	}
	return nil
}

const paperColumns = `
paper_id, COALESCE(run_id::text,''), title, COALESCE(authors,''), year, COALESCE(abstract,''),
COALESCE(url,''), COALESCE(pdf_url,''), COALESCE(doi,''), COALESCE(venue,''), COALESCE(source,''),
published, citations, influential_citations, impact, recommend_score,
COALESCE(recommend_rationale,''), COALESCE(notion_page_id,''), status, COALESCE(fail_reason,''),
created_at, updated_at`

func (r *PaperRepo) ListByRun(ctx context.Context, runID string) ([]models.Paper, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE run_id=$1 ORDER BY created_at DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list papers by run: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

func (r *PaperRepo) List(ctx context.Context, limit int) ([]models.Paper, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+paperColumns+` FROM papers ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

func (r *PaperRepo) Get(ctx context.Context, paperID string) (models.Paper, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE paper_id=$1`, paperID)
	p, err := scanPaper(row)
	if err != nil {
		return models.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}
