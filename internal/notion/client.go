// Package notion talks to the Notion REST API. The workspace database is
// the authoritative paper list; everything here works in terms of its
// property schema (Name, DOI, userDefined:URL, metrics, review fields).
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vlaradar/internal/models"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	databaseID string

	// delay between consecutive write/query calls in batch loops.
	delay time.Duration

	propsCache map[string]struct{}
}

func NewClient(token, databaseID string, delay time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		databaseID: databaseID,
		delay:      delay,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal notion request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notion %s %s: http %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode notion response: %w", err)
		}
	}
	return nil
}

func (c *Client) pause(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}
}

// databaseProperties returns the set of property names on the database,
// cached after the first call.
func (c *Client) databaseProperties(ctx context.Context) (map[string]struct{}, error) {
	if c.propsCache != nil {
		return c.propsCache, nil
	}
	var out struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.databaseID, nil, &out); err != nil {
		return nil, err
	}
	props := make(map[string]struct{}, len(out.Properties))
	for name := range out.Properties {
		props[name] = struct{}{}
	}
	c.propsCache = props
	return props, nil
}

// EnsureProperties adds the metric and review properties the pipeline
// writes, when the database does not have them yet.
func (c *Client) EnsureProperties(ctx context.Context) error {
	desired := map[string]any{
		"Citations":             map[string]any{"number": map[string]any{}},
		"Influential Citations": map[string]any{"number": map[string]any{}},
		"Impact (2yr mean)":     map[string]any{"number": map[string]any{}},
		"Institutions":          map[string]any{"multi_select": map[string]any{}},
		"Recommend Score":       map[string]any{"number": map[string]any{}},
		"Recommend Rationale":   map[string]any{"rich_text": map[string]any{}},
	}
	existing, err := c.databaseProperties(ctx)
	if err != nil {
		return err
	}
	missing := map[string]any{}
	for name, def := range desired {
		if _, ok := existing[name]; !ok {
			missing[name] = def
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := c.do(ctx, http.MethodPatch, "/databases/"+c.databaseID, map[string]any{"properties": missing}, nil); err != nil {
		return err
	}
	c.propsCache = nil
	return nil
}

// IsDuplicate checks for an existing page matching the title, DOI, or URL.
// Title equality is the primary dedup key.
func (c *Client) IsDuplicate(ctx context.Context, title, doi, url string) (bool, error) {
	var filters []map[string]any
	if title != "" {
		filters = append(filters, map[string]any{
			"property": "Name",
			"title":    map[string]any{"equals": title},
		})
	}
	if doi != "" {
		filters = append(filters, map[string]any{
			"property":  "DOI",
			"rich_text": map[string]any{"equals": doi},
		})
	}
	if url != "" {
		filters = append(filters, map[string]any{
			"property": "userDefined:URL",
			"url":      map[string]any{"equals": url},
		})
	}
	if len(filters) == 0 {
		return false, nil
	}

	body := map[string]any{"filter": map[string]any{"or": filters}}
	var out struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/databases/"+c.databaseID+"/query", body, &out); err != nil {
		return false, err
	}
	return len(out.Results) > 0, nil
}

// FilterNew drops papers that already exist in the database and returns
// the survivors plus the duplicate count. A failed duplicate check keeps
// the paper; the create call has its own duplicate tolerance.
func (c *Client) FilterNew(ctx context.Context, papers []models.Paper) ([]models.Paper, int, error) {
	unique := make([]models.Paper, 0, len(papers))
	duplicates := 0
	for i, p := range papers {
		if i > 0 {
			c.pause(ctx)
		}
		dup, err := c.IsDuplicate(ctx, p.Title, p.DOI, p.URL)
		if err != nil {
			if ctx.Err() != nil {
				return unique, duplicates, ctx.Err()
			}
			unique = append(unique, p)
			continue
		}
		if dup {
			duplicates++
			continue
		}
		unique = append(unique, p)
	}
	return unique, duplicates, nil
}

// CreatePaper inserts a page for the paper and returns its page id.
func (c *Client) CreatePaper(ctx context.Context, paper models.Paper) (string, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": paperProperties(paper),
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/pages", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdatePage patches the given properties on an existing page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, map[string]any{"properties": props}, nil)
}

// SetFigure stores the framework figure link on a page: the Framework
// Diagram url property and the Framework Image files property. The two
// are patched separately so a database missing one property still gets
// the other.
func (c *Client) SetFigure(ctx context.Context, pageID, imageURL, name string) error {
	if name == "" {
		name = "framework.png"
	}
	err := c.UpdatePage(ctx, pageID, map[string]any{
		"Framework Diagram": map[string]any{"url": imageURL},
	})
	c.pause(ctx)
	filesErr := c.UpdatePage(ctx, pageID, map[string]any{
		"Framework Image": map[string]any{
			"files": []map[string]any{
				{"name": name, "external": map[string]any{"url": imageURL}},
			},
		},
	})
	if err != nil {
		return err
	}
	return filesErr
}

// ListPapers scans the database with cursor pagination and decodes each
// page into a Paper carrying its Notion page id. limit caps the total;
// zero means everything.
func (c *Client) ListPapers(ctx context.Context, limit int) ([]models.Paper, error) {
	papers := make([]models.Paper, 0, 64)
	var cursor string
	for {
		pageSize := 100
		if limit > 0 && limit-len(papers) < pageSize {
			pageSize = limit - len(papers)
		}
		if pageSize <= 0 {
			break
		}
		body := map[string]any{"page_size": pageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		var out struct {
			Results    []notionPage `json:"results"`
			HasMore    bool         `json:"has_more"`
			NextCursor string       `json:"next_cursor"`
		}
		if err := c.do(ctx, http.MethodPost, "/databases/"+c.databaseID+"/query", body, &out); err != nil {
			return papers, err
		}
		for _, page := range out.Results {
			papers = append(papers, paperFromPage(page))
		}
		if !out.HasMore || out.NextCursor == "" {
			break
		}
		cursor = out.NextCursor
		c.pause(ctx)
	}
	return papers, nil
}
