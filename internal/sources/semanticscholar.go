package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vlaradar/internal/models"
)

const s2SearchURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// DefaultSemanticScholarQuery mirrors the keyword set used for the arXiv
// feed; the Graph API treats it as a free-text query.
const DefaultSemanticScholarQuery = "VLA Vision Language Action robot foundation model"

// ErrRateLimited is returned on a 429 so callers can skip the source
// instead of failing the whole crawl.
var ErrRateLimited = errors.New("semantic scholar rate limited")

type SemanticScholarClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewSemanticScholarClient(apiKey string) *SemanticScholarClient {
	return &SemanticScholarClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    s2SearchURL,
		apiKey:     apiKey,
	}
}

type s2SearchResponse struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	Title           string           `json:"title"`
	Abstract        string           `json:"abstract"`
	Year            *int             `json:"year"`
	URL             string           `json:"url"`
	Venue           string           `json:"venue"`
	PublicationDate string           `json:"publicationDate"`
	Authors         []s2Author       `json:"authors"`
	OpenAccessPdf   *s2OpenAccessPdf `json:"openAccessPdf"`
	ExternalIDs     map[string]any   `json:"externalIds"`
}

type s2Author struct {
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

type s2OpenAccessPdf struct {
	URL string `json:"url"`
}

// Search queries the Graph API for papers published since the cutoff.
func (c *SemanticScholarClient) Search(ctx context.Context, query string, daysBack, limit int) ([]models.Paper, error) {
	if limit <= 0 {
		limit = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "title,authors.name,authors.affiliations,year,abstract,url,openAccessPdf,externalIds,venue,publicationDate")
	params.Set("publicationDateOrYear", cutoff+":")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build semantic scholar request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar http %s", resp.Status)
	}

	var out s2SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode semantic scholar response: %w", err)
	}

	papers := make([]models.Paper, 0, len(out.Data))
	for _, item := range out.Data {
		p, ok := parseS2Paper(item)
		if !ok {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func parseS2Paper(item s2Paper) (models.Paper, bool) {
	title := NormalizeSpace(item.Title)
	if title == "" {
		return models.Paper{}, false
	}

	p := models.Paper{
		Title:    title,
		Abstract: TruncateChars(NormalizeSpace(item.Abstract), MaxAbstractChars),
		URL:      item.URL,
		Venue:    item.Venue,
		Source:   "semantic_scholar",
		Tags:     []string{"VLA", "Semantic Scholar"},
		Year:     item.Year,
	}
	if p.Venue == "" {
		p.Venue = "Conference"
	}

	doi := externalString(item.ExternalIDs, "DOI")
	arxivID := externalString(item.ExternalIDs, "ArXiv")

	switch {
	case item.OpenAccessPdf != nil && item.OpenAccessPdf.URL != "":
		p.PDFURL = item.OpenAccessPdf.URL
	case arxivID != "":
		p.PDFURL = "https://arxiv.org/pdf/" + arxivID + ".pdf"
	}

	switch {
	case doi != "":
		p.DOI = doi
	case arxivID != "":
		p.DOI = "arXiv:" + arxivID
	}

	if item.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", item.PublicationDate); err == nil {
			p.Published = t
		}
	}
	if p.Published.IsZero() && item.Year != nil {
		p.Published = time.Date(*item.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	for _, a := range item.Authors {
		name := strings.TrimSpace(a.Name)
		if name != "" {
			p.Authors = append(p.Authors, name)
		}
	}

	// Institutions come straight from author affiliations, capped to keep
	// the workspace property readable.
	seen := map[string]struct{}{}
	authors := item.Authors
	if len(authors) > 20 {
		authors = authors[:20]
	}
	for _, a := range authors {
		for _, aff := range a.Affiliations {
			aff = strings.TrimSpace(aff)
			if aff == "" {
				continue
			}
			if _, ok := seen[aff]; ok {
				continue
			}
			seen[aff] = struct{}{}
			p.Institutions = append(p.Institutions, aff)
		}
		if len(p.Institutions) >= 15 {
			break
		}
	}
	return p, true
}

func externalString(ids map[string]any, key string) string {
	if ids == nil {
		return ""
	}
	if v, ok := ids[key]; ok {
		switch x := v.(type) {
		case string:
			return x
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	}
	return ""
}
