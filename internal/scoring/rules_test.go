package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vlaradar/internal/models"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func fixedEngine(overrides map[string]float64, now time.Time) *RuleEngine {
	e := NewRuleEngine(overrides)
	e.now = func() time.Time { return now }
	return e
}

func TestComputeFreshPaperBeatsStalePaper(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	e := fixedEngine(nil, now)

	fresh := models.Paper{
		Title:     "fresh",
		Abstract:  "some abstract",
		Published: now.AddDate(0, 0, -2),
		Source:    "arxiv",
		PDFURL:    "https://arxiv.org/pdf/1.pdf",
	}
	stale := fresh
	stale.Published = now.AddDate(-2, 0, 0)

	require.Greater(t, e.Compute(fresh), e.Compute(stale))
}

func TestComputeRange(t *testing.T) {
	now := time.Now()
	e := fixedEngine(nil, now)

	empty := e.Compute(models.Paper{Title: "x"})
	require.GreaterOrEqual(t, empty, 0.0)

	max := e.Compute(models.Paper{
		Title:                "y",
		Abstract:             string(make([]byte, 2000)),
		Published:            now,
		PDFURL:               "u",
		Source:               "arxiv",
		Citations:            intPtr(10000),
		InfluentialCitations: intPtr(1000),
		ImpactFactor:         floatPtr(20),
	})
	require.LessOrEqual(t, max, 100.0)
	require.Greater(t, max, 90.0)
}

func TestLogNorm(t *testing.T) {
	require.InDelta(t, 0.0, logNorm(0, 3), 1e-9)
	require.InDelta(t, 1.0/3.0, logNorm(9, 3), 1e-9)
	require.InDelta(t, 1.0, logNorm(1000000, 3), 1e-9, "caps at 1")
}

func TestWeightOverrides(t *testing.T) {
	now := time.Now()
	allFresh := fixedEngine(map[string]float64{
		"citations": 0, "influential_citations": 0, "impact": 0,
		"abstract_length": 0, "has_pdf": 0, "source_quality": 0,
	}, now)

	p := models.Paper{Title: "x", Published: now}
	require.InDelta(t, 100.0, allFresh.Compute(p), 0.01)
}
