// Package scoring produces 0-100 recommendation scores for papers, either
// from a weighted rule engine or from an LLM reviewer.
package scoring

import (
	"math"
	"time"

	"vlaradar/internal/models"
)

// DefaultWeights set the relative pull of each rule component.
var DefaultWeights = map[string]float64{
	"freshness":             2.0,
	"citations":             1.5,
	"influential_citations": 1.0,
	"impact":                1.0,
	"abstract_length":       0.5,
	"has_pdf":               0.5,
	"source_quality":        1.0,
}

type RuleEngine struct {
	weights map[string]float64
	now     func() time.Time
}

// NewRuleEngine merges overrides on top of the defaults. Unknown keys in
// overrides are kept, so new components can be weighted from config alone.
func NewRuleEngine(overrides map[string]float64) *RuleEngine {
	w := make(map[string]float64, len(DefaultWeights))
	for k, v := range DefaultWeights {
		w[k] = v
	}
	for k, v := range overrides {
		w[k] = v
	}
	return &RuleEngine{weights: w, now: time.Now}
}

// Compute returns a score in [0,100], rounded to two decimals. Components
// are normalized to [0,1] before weighting.
func (e *RuleEngine) Compute(paper models.Paper) float64 {
	w := e.weights
	var totalW float64
	for _, v := range w {
		totalW += v
	}
	if totalW == 0 {
		return 0
	}

	freshness := 0.0
	if !paper.Published.IsZero() {
		days := e.now().Sub(paper.Published).Hours() / 24
		frac := days / 365.0
		if frac > 1 {
			frac = 1
		}
		freshness = math.Max(0, 1.0-frac)
	}

	citations := logNorm(intOrZero(paper.Citations), 3.0)
	influential := logNorm(intOrZero(paper.InfluentialCitations), 2.5)

	impact := 0.0
	if paper.ImpactFactor != nil {
		impact = math.Min(1.0, *paper.ImpactFactor/5.0)
	}

	abstractLen := math.Min(1.0, float64(len(paper.Abstract))/1500.0)

	hasPDF := 0.0
	if paper.PDFURL != "" {
		hasPDF = 1.0
	}

	sourceQuality := 0.8
	switch paper.Source {
	case "arxiv":
		sourceQuality = 0.85
	case "semantic_scholar":
		sourceQuality = 0.75
	}

	score := w["freshness"]*freshness +
		w["citations"]*citations +
		w["influential_citations"]*influential +
		w["impact"]*impact +
		w["abstract_length"]*abstractLen +
		w["has_pdf"]*hasPDF +
		w["source_quality"]*sourceQuality

	return round2(score / totalW * 100.0)
}

// logNorm maps a count onto [0,1] with log10 scaling so that early
// citations matter more than late ones.
func logNorm(n int, divisor float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(1.0, math.Log10(float64(n)+1)/divisor)
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
