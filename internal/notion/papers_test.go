package notion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vlaradar/internal/models"
)

func TestMissingFields(t *testing.T) {
	score := 70.0
	citations := 0
	papers := []models.Paper{
		{NotionPageID: "p1", Title: "has everything", PDFURL: "u", Citations: &citations, RecommendScore: &score, Institutions: []string{"MIT"}},
		{NotionPageID: "p2", Title: "bare"},
		{Title: "no page id, skipped"},
	}

	missing := MissingFields(papers, []string{"pdf_url", "citations", "institutions", "recommend_score"})

	require.Len(t, missing["pdf_url"], 1)
	require.Equal(t, "p2", missing["pdf_url"][0].NotionPageID)
	require.Len(t, missing["citations"], 1, "zero citations is not missing")
	require.Len(t, missing["institutions"], 1)
	require.Len(t, missing["recommend_score"], 1)
}

func TestInstitutionOptionsCaps(t *testing.T) {
	insts := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		insts = append(insts, string(rune('A'+i))+" University")
	}
	opts := InstitutionOptions(insts)
	require.Len(t, opts, 15)
}

func TestPaperPropertiesTruncatesTitle(t *testing.T) {
	long := make([]rune, 3000)
	for i := range long {
		long[i] = 'x'
	}
	props := paperProperties(models.Paper{Title: string(long)})
	name := props["Name"].(map[string]any)["title"].([]map[string]any)
	content := name[0]["text"].(map[string]any)["content"].(string)
	require.Len(t, []rune(content), maxTextChars)
}

func TestPaperPropertiesOmitsEmptyFields(t *testing.T) {
	props := paperProperties(models.Paper{Title: "T"})
	require.NotContains(t, props, "Abstract")
	require.NotContains(t, props, "PDF Link")
	require.NotContains(t, props, "Citations")
	require.Contains(t, props, "Venue", "venue falls back to ArXiv")
}
