package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vlaradar/internal/models"
)

func TestCitationCountsByArxivID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "arXiv:2501.01234") {
			_, _ = w.Write([]byte(`{"citationCount": 12, "influentialCitationCount": 3}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := New("", "")
	e.s2Base = srv.URL + "/"

	c, infl := e.CitationCounts(context.Background(), models.Paper{DOI: "arXiv:2501.01234"})
	require.NotNil(t, c)
	require.Equal(t, 12, *c)
	require.NotNil(t, infl)
	require.Equal(t, 3, *infl)
}

func TestCitationCountsFallsBackToTitleSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/search") {
			require.Equal(t, "Some VLA paper", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"data":[{"citationCount": 5, "influentialCitationCount": 1}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := New("", "")
	e.s2Base = srv.URL + "/"

	c, _ := e.CitationCounts(context.Background(), models.Paper{Title: "Some VLA paper"})
	require.NotNil(t, c)
	require.Equal(t, 5, *c)
}

func TestImpactFactor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/works/doi:10.1234/x"):
			_, _ = w.Write([]byte(`{"host_venue":{"id":"https://openalex.org/S99"}}`))
		case strings.HasPrefix(r.URL.Path, "/sources/S99"):
			_, _ = w.Write([]byte(`{"summary_stats":{"2yr_mean_citedness": 4.2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := New("", "")
	e.openAlexBase = srv.URL

	f := e.ImpactFactor(context.Background(), models.Paper{DOI: "10.1234/x"})
	require.NotNil(t, f)
	require.InDelta(t, 4.2, *f, 1e-9)
}

func TestArxivPDFURL(t *testing.T) {
	require.Equal(t, "https://arxiv.org/pdf/2501.01234.pdf", ArxivPDFURL("", "arXiv:2501.01234"))
	require.Equal(t, "https://arxiv.org/pdf/2501.01234v2.pdf", ArxivPDFURL("https://arxiv.org/abs/2501.01234v2", ""))
	require.Equal(t, "", ArxivPDFURL("https://example.com/paper", "10.1/x"))
}

func TestBareDOI(t *testing.T) {
	require.Equal(t, "10.1/x", bareDOI("DOI:10.1/x"))
	require.Equal(t, "10.1/x", bareDOI("10.1/x"))
	require.Equal(t, "", bareDOI("arXiv:2501.01234"))
}
