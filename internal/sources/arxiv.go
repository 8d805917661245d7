package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vlaradar/internal/models"
)

const arxivBaseURL = "https://export.arxiv.org/api/query"

// DefaultArxivQuery is the strict search expression used for the VLA feed.
const DefaultArxivQuery = `all:"Vision-Language-Action" OR all:"VLA model" OR all:"VLA policy" OR all:"vision language action model"`

const arxivPageSize = 100

type ArxivClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewArxivClient() *ArxivClient {
	return &ArxivClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    arxivBaseURL,
	}
}

// Atom feed shapes for the arXiv export API.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// Search pages through the export API newest-first and stops once entries
// fall behind the cutoff. Results are raw candidates; relevance filtering
// is the caller's job.
func (c *ArxivClient) Search(ctx context.Context, query string, daysBack, maxResults int) ([]models.Paper, error) {
	if query == "" {
		query = DefaultArxivQuery
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysBack)

	papers := make([]models.Paper, 0, maxResults)
	fetched := 0
	start := 0
	for fetched < maxResults {
		pageSize := maxResults - fetched
		if pageSize > arxivPageSize {
			pageSize = arxivPageSize
		}

		feed, err := c.fetchPage(ctx, query, start, pageSize)
		if err != nil {
			return papers, err
		}
		if len(feed.Entries) == 0 {
			break
		}

		reachedCutoff := false
		for _, entry := range feed.Entries {
			p, ok := parseArxivEntry(entry)
			if !ok {
				continue
			}
			if !p.Published.IsZero() && p.Published.Before(cutoff) {
				// Sorted by submission date descending, so the rest of
				// this page and all later pages are older still.
				reachedCutoff = true
				break
			}
			papers = append(papers, p)
		}
		if reachedCutoff {
			break
		}
		fetched += pageSize
		start += pageSize
	}
	return papers, nil
}

func (c *ArxivClient) fetchPage(ctx context.Context, query string, start, maxResults int) (*atomFeed, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv http %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read arxiv response: %w", err)
	}
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}
	return &feed, nil
}

func parseArxivEntry(entry atomEntry) (models.Paper, bool) {
	title := NormalizeSpace(entry.Title)
	if title == "" {
		return models.Paper{}, false
	}

	p := models.Paper{
		Title:    title,
		Abstract: TruncateChars(NormalizeSpace(entry.Summary), MaxAbstractChars),
		Venue:    "ArXiv",
		Source:   "arxiv",
		Tags:     []string{"VLA", "arXiv"},
	}

	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name != "" {
			p.Authors = append(p.Authors, name)
		}
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" {
			p.PDFURL = link.Href
		} else if strings.Contains(link.Href, "/abs/") {
			p.URL = link.Href
		}
	}

	// Entry id looks like https://arxiv.org/abs/2501.01234v2; the id with
	// its version suffix stands in for a DOI.
	if idx := strings.LastIndex(entry.ID, "/"); idx >= 0 && idx+1 < len(entry.ID) {
		p.DOI = "arXiv:" + entry.ID[idx+1:]
	}
	if p.URL == "" && entry.ID != "" {
		p.URL = entry.ID
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		p.Published = t
		year := t.Year()
		p.Year = &year
	}
	return p, true
}
