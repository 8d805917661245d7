package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2501.01234v2</id>
    <title>MAP-VLA: Memory-Augmented Prompting for
 Vision-Language-Action Model</title>
    <summary>We propose a memory-augmented
 prompting method.</summary>
    <published>2099-01-05T12:00:00Z</published>
    <author><name>Alice Chen</name></author>
    <author><name>Bob Li</name></author>
    <link href="http://arxiv.org/abs/2501.01234v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2501.01234v2" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func TestArxivSearchParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
		require.Equal(t, "descending", r.URL.Query().Get("sortOrder"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewArxivClient()
	c.baseURL = srv.URL

	papers, err := c.Search(context.Background(), "", 3, 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	require.Equal(t, "MAP-VLA: Memory-Augmented Prompting for Vision-Language-Action Model", p.Title)
	require.Equal(t, "We propose a memory-augmented prompting method.", p.Abstract)
	require.Equal(t, []string{"Alice Chen", "Bob Li"}, p.Authors)
	require.Equal(t, "http://arxiv.org/abs/2501.01234v2", p.URL)
	require.Equal(t, "http://arxiv.org/pdf/2501.01234v2", p.PDFURL)
	require.Equal(t, "arXiv:2501.01234v2", p.DOI)
	require.NotNil(t, p.Year)
	require.Equal(t, 2099, *p.Year)
	require.Equal(t, "ArXiv", p.Venue)
}

func TestArxivSearchStopsAtCutoff(t *testing.T) {
	old := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2001.00001v1</id>
    <title>Old VLA policy paper</title>
    <summary>old</summary>
    <published>2020-01-01T00:00:00Z</published>
  </entry>
</feed>`
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(old))
	}))
	defer srv.Close()

	c := NewArxivClient()
	c.baseURL = srv.URL

	papers, err := c.Search(context.Background(), "q", 3, 500)
	require.NoError(t, err)
	require.Empty(t, papers)
	require.Equal(t, 1, calls, "pagination should stop at the cutoff date")
}
