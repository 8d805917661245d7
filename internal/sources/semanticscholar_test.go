package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemanticScholarSearch(t *testing.T) {
	body := `{"data":[{
		"title":"Training VLA policy for robotic manipulation",
		"abstract":"A policy method.",
		"year":2099,
		"url":"https://www.semanticscholar.org/paper/abc",
		"venue":"",
		"publicationDate":"2099-01-04",
		"authors":[
			{"name":"Alice Chen","affiliations":["MIT","MIT"]},
			{"name":"Bob Li","affiliations":["Stanford University"]}
		],
		"openAccessPdf":null,
		"externalIds":{"ArXiv":"2501.04321"}
	}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("publicationDateOrYear"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewSemanticScholarClient("")
	c.baseURL = srv.URL

	papers, err := c.Search(context.Background(), "vla", 3, 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	require.Equal(t, "Training VLA policy for robotic manipulation", p.Title)
	require.Equal(t, "https://arxiv.org/pdf/2501.04321.pdf", p.PDFURL)
	require.Equal(t, "arXiv:2501.04321", p.DOI)
	require.Equal(t, "Conference", p.Venue, "empty venue falls back to a generic label")
	require.Equal(t, []string{"Alice Chen", "Bob Li"}, p.Authors)
	require.Equal(t, []string{"MIT", "Stanford University"}, p.Institutions)
	require.Equal(t, "2099-01-04", p.Published.Format("2006-01-02"))
}

func TestSemanticScholarRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSemanticScholarClient("")
	c.baseURL = srv.URL

	_, err := c.Search(context.Background(), "vla", 3, 10)
	require.ErrorIs(t, err, ErrRateLimited)
}
