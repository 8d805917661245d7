package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vlaradar/internal/models"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("secret", "db1", 0)
	c.baseURL = srv.URL
	return c, srv
}

func TestIsDuplicateBuildsOrFilter(t *testing.T) {
	var got map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/databases/db1/query", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, notionVersion, r.Header.Get("Notion-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[{"id":"page1"}]}`))
	}))

	dup, err := c.IsDuplicate(context.Background(), "A Paper", "arXiv:1", "https://x")
	require.NoError(t, err)
	require.True(t, dup)

	filter := got["filter"].(map[string]any)
	or := filter["or"].([]any)
	require.Len(t, or, 3)
	first := or[0].(map[string]any)
	require.Equal(t, "Name", first["property"])
}

func TestIsDuplicateNoKeys(t *testing.T) {
	c := NewClient("t", "db", 0)
	dup, err := c.IsDuplicate(context.Background(), "", "", "")
	require.NoError(t, err)
	require.False(t, dup)
}

func TestFilterNewCountsDuplicates(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ := json.Marshal(body)
		if jsonContains(raw, "Known Paper") {
			_, _ = w.Write([]byte(`{"results":[{"id":"p"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))

	papers := []models.Paper{
		{Title: "Known Paper"},
		{Title: "New Paper"},
	}
	unique, dups, err := c.FilterNew(context.Background(), papers)
	require.NoError(t, err)
	require.Equal(t, 1, dups)
	require.Len(t, unique, 1)
	require.Equal(t, "New Paper", unique[0].Title)
}

func TestCreatePaperProperties(t *testing.T) {
	var got map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"page-123"}`))
	}))

	year := 2026
	citations := 7
	score := 81.5
	pageID, err := c.CreatePaper(context.Background(), models.Paper{
		Title:          "T",
		Authors:        []string{"A", "B"},
		Year:           &year,
		Abstract:       "abs",
		URL:            "https://arxiv.org/abs/1",
		PDFURL:         "https://arxiv.org/pdf/1.pdf",
		DOI:            "arXiv:1",
		Venue:          "ArXiv",
		Tags:           []string{"VLA", "arXiv"},
		Citations:      &citations,
		Institutions:   []string{"MIT", " MIT ", "Stanford"},
		RecommendScore: &score,
	})
	require.NoError(t, err)
	require.Equal(t, "page-123", pageID)

	props := got["properties"].(map[string]any)
	require.Contains(t, props, "Name")
	require.Contains(t, props, "Status")
	require.Contains(t, props, "Added")
	require.Contains(t, props, "PDF Link")
	require.Contains(t, props, "Recommend Score")

	insts := props["Institutions"].(map[string]any)["multi_select"].([]any)
	require.Len(t, insts, 2, "duplicate institutions are merged")
}

func TestListPapersPaginates(t *testing.T) {
	page1 := `{"results":[{"id":"p1","properties":{
		"Name":{"type":"title","title":[{"text":{"content":"First"}}]},
		"Citations":{"type":"number","number":3},
		"PDF Link":{"type":"url","url":null}
	}}],"has_more":true,"next_cursor":"cur2"}`
	page2 := `{"results":[{"id":"p2","properties":{
		"Name":{"type":"title","title":[{"text":{"content":"Second"}}]},
		"Institutions":{"type":"multi_select","multi_select":[{"name":"MIT"}]}
	}}],"has_more":false,"next_cursor":null}`

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["start_cursor"] == "cur2" {
			_, _ = w.Write([]byte(page2))
			return
		}
		_, _ = w.Write([]byte(page1))
	}))

	papers, err := c.ListPapers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	require.Equal(t, "First", papers[0].Title)
	require.Equal(t, "p1", papers[0].NotionPageID)
	require.NotNil(t, papers[0].Citations)
	require.Equal(t, 3, *papers[0].Citations)
	require.Empty(t, papers[0].PDFURL)
	require.Equal(t, []string{"MIT"}, papers[1].Institutions)
}

func TestEnsurePropertiesPatchesMissing(t *testing.T) {
	var patched map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"properties":{"Name":{},"Citations":{}}}`))
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			_, _ = w.Write([]byte(`{}`))
		}
	}))

	require.NoError(t, c.EnsureProperties(context.Background()))
	props := patched["properties"].(map[string]any)
	require.Contains(t, props, "Recommend Score")
	require.Contains(t, props, "Institutions")
	require.NotContains(t, props, "Citations", "existing properties are left alone")
}

func TestSetFigurePatchesBothProperties(t *testing.T) {
	var bodies []map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{}`))
	}))

	require.NoError(t, c.SetFigure(context.Background(), "p1", "https://img/fig.png", ""))
	require.Len(t, bodies, 2)
	require.Contains(t, bodies[0]["properties"].(map[string]any), "Framework Diagram")
	require.Contains(t, bodies[1]["properties"].(map[string]any), "Framework Image")
}

func jsonContains(raw []byte, needle string) bool {
	return json.Valid(raw) && strings.Contains(string(raw), needle)
}
