package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vlaradar/internal/models"
	"vlaradar/internal/providers"
)

// MaxRationaleChars matches the workspace database's rich text limit.
const MaxRationaleChars = 2000

const reviewSystemPrompt = `You are a senior reviewer for Vision-Language-Action (VLA) research. Score the paper 0-100 with real spread between papers.

Criteria, in descending weight:
1. VLA relevance (30%): direct vision-language-action fusion, embodied AI, or robot manipulation. Generic multimodal work does not score high.
2. Method novelty (25%): new architecture, training paradigm, or data strategy, versus fine-tuning or recombining existing methods.
3. Experimental rigor (20%): real robot experiments beat simulation beat dataset-only; multiple scenes and tasks beat one; ablations are a plus.
4. Technical depth (15%): tackles core problems (long-horizon planning, sim2real, generalization, safety) rather than shallow application.
5. Impact potential (10%): top venue, citations, well-known lab, open source, reproducibility.

Score bands:
- 90-100: breakthrough work (new paradigm, SOTA sweep, top-venue oral, open benchmark)
- 75-89: strong contribution (novel method, solid experiments, real-robot validation)
- 60-74: average quality (some novelty, mostly simulation, ordinary venue)
- 40-59: marginal relevance (weak VLA tie, plain method, thin experiments)
- 0-39: not recommended (barely VLA, survey without insight, missing experiments)

Do not cluster scores in 70-80; spread them out.

Reply with JSON only: {"score": <number>, "rationale": "<short justification>"}.`

const reviewSystemPromptFull = reviewSystemPrompt + `

You are given the paper's full PDF text and key figures. Analyze the figures (architecture diagrams, result plots) and cite concrete sections, experiments, or figures in the rationale. Note in the rationale if the PDF is incomplete.`

// reviewMetadata is what the reviewer sees about the paper besides any
// attached PDF content.
type reviewMetadata struct {
	Title                string   `json:"title"`
	Abstract             string   `json:"abstract"`
	Venue                string   `json:"venue,omitempty"`
	Year                 *int     `json:"year,omitempty"`
	PublishedDate        string   `json:"published_date,omitempty"`
	Citations            *int     `json:"citations,omitempty"`
	InfluentialCitations *int     `json:"influential_citations,omitempty"`
	ImpactFactor         *float64 `json:"impact_2yr_mean,omitempty"`
	HasPDF               bool     `json:"has_pdf"`
	Tags                 []string `json:"tags,omitempty"`
	Institutions         []string `json:"institutions,omitempty"`
	FullPDFText          string   `json:"full_pdf_text,omitempty"`
}

type Reviewer struct {
	temperature float64
	maxTokens   int
}

func NewReviewer(temperature float64, maxTokens int) *Reviewer {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Reviewer{temperature: temperature, maxTokens: maxTokens}
}

// BuildRequest assembles the provider request for one paper. PDF content
// is optional; when present the reviewer gets the full-content prompt.
func (r *Reviewer) BuildRequest(paper models.Paper, pdf *models.PDFContent) providers.GenerateRequest {
	meta := reviewMetadata{
		Title:                paper.Title,
		Abstract:             truncateRunes(paper.Abstract, 1500),
		Venue:                paper.Venue,
		Year:                 paper.Year,
		Citations:            paper.Citations,
		InfluentialCitations: paper.InfluentialCitations,
		ImpactFactor:         paper.ImpactFactor,
		HasPDF:               paper.PDFURL != "",
		Tags:                 paper.Tags,
	}
	if !paper.Published.IsZero() {
		meta.PublishedDate = paper.Published.Format("2006-01-02")
	}
	if len(paper.Institutions) > 5 {
		meta.Institutions = paper.Institutions[:5]
	} else {
		meta.Institutions = paper.Institutions
	}

	system := reviewSystemPrompt
	var images []string
	if pdf != nil {
		if pdf.Text != "" {
			meta.FullPDFText = pdf.Text
			system = reviewSystemPromptFull
		}
		for _, img := range pdf.Images {
			images = append(images, img.DataURL)
		}
		if len(images) > 0 {
			system = reviewSystemPromptFull
		}
	}

	body, _ := json.MarshalIndent(meta, "", "  ")
	return providers.GenerateRequest{
		Operation:   "review_paper",
		System:      system,
		Prompt:      string(body),
		Images:      images,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	}
}

// Review calls the provider and parses its reply into a score and
// rationale.
func (r *Reviewer) Review(ctx context.Context, p providers.LLMProvider, paper models.Paper, pdf *models.PDFContent) (float64, string, providers.ProviderInfo, error) {
	resp, info, err := p.Generate(ctx, r.BuildRequest(paper, pdf))
	if err != nil {
		return 0, "", info, err
	}
	score, rationale, err := ParseReply(resp.Text)
	if err != nil {
		return 0, "", info, err
	}
	return score, rationale, info, nil
}

type reviewReply struct {
	Score     json.Number `json:"score"`
	Rationale string      `json:"rationale"`
}

var scoreNumberRe = regexp.MustCompile(`(\d{1,3})`)

// ParseReply extracts (score, rationale) from a reviewer reply. Strict
// JSON is preferred; otherwise the first 1-3 digit number in the text is
// taken as the score and the raw text becomes the rationale.
func ParseReply(content string) (float64, string, error) {
	content = strings.TrimSpace(content)
	content = stripCodeFence(content)

	var reply reviewReply
	if err := json.Unmarshal([]byte(content), &reply); err == nil && reply.Score != "" {
		score, err := reply.Score.Float64()
		if err == nil {
			return clampScore(score), truncateRunes(strings.TrimSpace(reply.Rationale), MaxRationaleChars), nil
		}
	}

	if m := scoreNumberRe.FindStringSubmatch(content); m != nil {
		score, _ := strconv.ParseFloat(m[1], 64)
		return clampScore(score), truncateRunes(content, MaxRationaleChars), nil
	}
	return 0, "", fmt.Errorf("no score in reviewer reply")
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampScore(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return round2(score)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
