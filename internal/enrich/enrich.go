// Package enrich pulls citation counts and venue impact numbers for papers
// from Semantic Scholar and OpenAlex. Lookups are best-effort; callers treat
// a miss as "no data", not a failure.
package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vlaradar/internal/models"
)

const (
	s2PaperBase  = "https://api.semanticscholar.org/graph/v1/paper/"
	openAlexBase = "https://api.openalex.org"
)

type Enricher struct {
	httpClient   *http.Client
	s2Base       string
	openAlexBase string
	s2Key        string
	mailto       string
}

func New(s2Key, openAlexMailto string) *Enricher {
	return &Enricher{
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		s2Base:       s2PaperBase,
		openAlexBase: openAlexBase,
		s2Key:        s2Key,
		mailto:       openAlexMailto,
	}
}

type s2Metrics struct {
	CitationCount            *int `json:"citationCount"`
	InfluentialCitationCount *int `json:"influentialCitationCount"`
}

type s2MetricsSearch struct {
	Data []s2Metrics `json:"data"`
}

// CitationCounts resolves the paper on Semantic Scholar by DOI, then arXiv
// id, then title search, and returns (citations, influential citations).
// Both are nil when the paper cannot be resolved.
func (e *Enricher) CitationCounts(ctx context.Context, paper models.Paper) (*int, *int) {
	const fields = "citationCount,influentialCitationCount,title,venue"

	if doi := bareDOI(paper.DOI); doi != "" {
		var m s2Metrics
		if e.getJSON(ctx, e.s2Base+"DOI:"+doi, url.Values{"fields": {fields}}, &m) && m.CitationCount != nil {
			return m.CitationCount, m.InfluentialCitationCount
		}
	}
	if arx := bareArxivID(paper.DOI); arx != "" {
		var m s2Metrics
		if e.getJSON(ctx, e.s2Base+"arXiv:"+arx, url.Values{"fields": {fields}}, &m) && m.CitationCount != nil {
			return m.CitationCount, m.InfluentialCitationCount
		}
	}
	if paper.Title != "" {
		var s s2MetricsSearch
		params := url.Values{"query": {paper.Title}, "limit": {"1"}, "fields": {fields}}
		if e.getJSON(ctx, e.s2Base+"search", params, &s) && len(s.Data) > 0 {
			return s.Data[0].CitationCount, s.Data[0].InfluentialCitationCount
		}
	}
	return nil, nil
}

type openAlexWork struct {
	HostVenue *struct {
		ID string `json:"id"`
	} `json:"host_venue"`
}

type openAlexWorkList struct {
	Results []openAlexWork `json:"results"`
}

type openAlexSource struct {
	SummaryStats *struct {
		TwoYearMeanCitedness *float64 `json:"2yr_mean_citedness"`
	} `json:"summary_stats"`
}

// ImpactFactor approximates the venue impact via OpenAlex: work lookup by
// DOI/arXiv id/title, then the hosting source's 2-year mean citedness.
func (e *Enricher) ImpactFactor(ctx context.Context, paper models.Paper) *float64 {
	params := url.Values{}
	if e.mailto != "" {
		params.Set("mailto", e.mailto)
	}

	var work *openAlexWork
	if doi := bareDOI(paper.DOI); doi != "" {
		var w openAlexWork
		if e.getJSON(ctx, e.openAlexBase+"/works/doi:"+doi, params, &w) {
			work = &w
		}
	} else if arx := bareArxivID(paper.DOI); arx != "" {
		var w openAlexWork
		if e.getJSON(ctx, e.openAlexBase+"/works/arXiv:"+arx, params, &w) {
			work = &w
		}
	}
	if work == nil && paper.Title != "" {
		search := url.Values{}
		if e.mailto != "" {
			search.Set("mailto", e.mailto)
		}
		search.Set("search", paper.Title)
		search.Set("per_page", "1")
		var list openAlexWorkList
		if e.getJSON(ctx, e.openAlexBase+"/works", search, &list) && len(list.Results) > 0 {
			work = &list.Results[0]
		}
	}
	if work == nil || work.HostVenue == nil || work.HostVenue.ID == "" {
		return nil
	}

	// Source id looks like https://openalex.org/S123456789.
	sourceID := work.HostVenue.ID
	if idx := strings.LastIndex(sourceID, "/"); idx >= 0 {
		sourceID = sourceID[idx+1:]
	}
	var src openAlexSource
	if !e.getJSON(ctx, e.openAlexBase+"/sources/"+sourceID, params, &src) {
		return nil
	}
	if src.SummaryStats == nil {
		return nil
	}
	return src.SummaryStats.TwoYearMeanCitedness
}

type s2AuthorDetail struct {
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

type s2PaperAuthors struct {
	Authors []s2AuthorDetail `json:"authors"`
}

type s2IDSearch struct {
	Data []struct {
		PaperID string `json:"paperId"`
	} `json:"data"`
}

// Institutions looks up the author affiliations on Semantic Scholar. The
// paper is resolved by DOI, then arXiv id (from the DOI field or the abs
// URL), then title search. Returns up to 15 distinct names.
func (e *Enricher) Institutions(ctx context.Context, paper models.Paper) []string {
	paperID := ""
	if doi := bareDOI(paper.DOI); doi != "" {
		paperID = "DOI:" + doi
	} else if arx := bareArxivID(paper.DOI); arx != "" {
		paperID = "arXiv:" + arx
	} else if strings.Contains(paper.URL, "arxiv.org/abs/") {
		id := paper.URL[strings.Index(paper.URL, "/abs/")+len("/abs/"):]
		if v := strings.LastIndex(id, "v"); v > 0 {
			id = id[:v]
		}
		paperID = "arXiv:" + id
	}
	if paperID == "" && paper.Title != "" {
		var s s2IDSearch
		params := url.Values{"query": {paper.Title}, "limit": {"1"}, "fields": {"paperId"}}
		if e.getJSON(ctx, e.s2Base+"search", params, &s) && len(s.Data) > 0 {
			paperID = s.Data[0].PaperID
		}
	}
	if paperID == "" {
		return nil
	}

	var detail s2PaperAuthors
	params := url.Values{"fields": {"authors.affiliations,authors.name"}}
	if !e.getJSON(ctx, e.s2Base+paperID, params, &detail) {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 15)
	for _, a := range detail.Authors {
		for _, aff := range a.Affiliations {
			name := strings.TrimSpace(aff)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
			if len(out) >= 15 {
				return out
			}
		}
	}
	return out
}

func (e *Enricher) getJSON(ctx context.Context, rawURL string, params url.Values, out any) bool {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	if e.s2Key != "" && strings.HasPrefix(rawURL, e.s2Base) {
		req.Header.Set("x-api-key", e.s2Key)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false
	}
	return true
}

func bareDOI(doi string) string {
	d := strings.TrimSpace(doi)
	low := strings.ToLower(d)
	switch {
	case strings.HasPrefix(low, "doi:"):
		return d[len("doi:"):]
	case strings.HasPrefix(low, "10."):
		return d
	}
	return ""
}

func bareArxivID(doi string) string {
	d := strings.TrimSpace(doi)
	if strings.HasPrefix(strings.ToLower(d), "arxiv:") {
		return d[len("arxiv:"):]
	}
	return ""
}

// ArxivPDFURL derives a direct PDF link from an abs page URL or arXiv id.
// It returns "" when no arXiv reference is present.
func ArxivPDFURL(absURL, doi string) string {
	if id := bareArxivID(doi); id != "" {
		return "https://arxiv.org/pdf/" + id + ".pdf"
	}
	if strings.Contains(absURL, "arxiv.org/abs/") {
		out := strings.Replace(absURL, "/abs/", "/pdf/", 1)
		if !strings.HasSuffix(out, ".pdf") {
			out += ".pdf"
		}
		return out
	}
	return ""
}
