package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"vlaradar/internal/models"
)

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanPaper(row pgx.Row) (models.Paper, error) {
	var p models.Paper
	var runID, authors string
	var published *time.Time
	if err := row.Scan(
		&p.PaperID, &runID, &p.Title, &authors, &p.Year, &p.Abstract,
		&p.URL, &p.PDFURL, &p.DOI, &p.Venue, &p.Source,
		&published, &p.Citations, &p.InfluentialCitations, &p.ImpactFactor, &p.RecommendScore,
		&p.RecommendRationale, &p.NotionPageID, &p.Status, &p.FailReason,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return models.Paper{}, err
	}
	p.Authors = splitList(authors)
	if published != nil {
		p.Published = *published
	}
	return p, nil
}

func scanPapers(rows pgx.Rows) ([]models.Paper, error) {
	out := make([]models.Paper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}
