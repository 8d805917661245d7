package notion

import (
	"strings"
	"time"

	"vlaradar/internal/models"
)

// Notion rich text and title values cap out at 2000 chars per block.
const maxTextChars = 2000

type notionPage struct {
	ID         string               `json:"id"`
	Properties map[string]propValue `json:"properties"`
}

type propValue struct {
	Type        string         `json:"type"`
	Title       []richText     `json:"title"`
	RichText    []richText     `json:"rich_text"`
	URL         *string        `json:"url"`
	Number      *float64       `json:"number"`
	MultiSelect []selectOption `json:"multi_select"`
}

type richText struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

type selectOption struct {
	Name string `json:"name"`
}

// TextValue builds a rich_text payload capped at the API text limit.
func TextValue(content string) []map[string]any {
	return []map[string]any{
		{"text": map[string]any{"content": truncate(content, maxTextChars)}},
	}
}

// paperProperties builds the property map for a page create. Optional
// fields are only set when present so absent data never wipes columns.
func paperProperties(paper models.Paper) map[string]any {
	venue := paper.Venue
	if venue == "" {
		venue = "ArXiv"
	}
	props := map[string]any{
		"Name":   map[string]any{"title": TextValue(paper.Title)},
		"Status": map[string]any{"select": map[string]any{"name": "To Read"}},
		"Venue":  map[string]any{"select": map[string]any{"name": venue}},
		"Added":  map[string]any{"date": map[string]any{"start": time.Now().Format("2006-01-02")}},
	}

	if len(paper.Authors) > 0 {
		props["Authors"] = map[string]any{"rich_text": TextValue(strings.Join(paper.Authors, ", "))}
	}
	if paper.Year != nil {
		props["Year"] = map[string]any{"number": *paper.Year}
	}
	if paper.Abstract != "" {
		props["Abstract"] = map[string]any{"rich_text": TextValue(paper.Abstract)}
	}
	if paper.URL != "" {
		props["userDefined:URL"] = map[string]any{"url": paper.URL}
	}
	if paper.PDFURL != "" {
		props["PDF Link"] = map[string]any{"url": paper.PDFURL}
	}
	if paper.DOI != "" {
		props["DOI"] = map[string]any{"rich_text": TextValue(paper.DOI)}
	}
	if len(paper.Tags) > 0 {
		tags := paper.Tags
		if len(tags) > 10 {
			tags = tags[:10]
		}
		opts := make([]map[string]any, 0, len(tags))
		for _, tag := range tags {
			opts = append(opts, map[string]any{"name": tag})
		}
		props["Tags"] = map[string]any{"multi_select": opts}
	}

	if paper.Citations != nil {
		props["Citations"] = map[string]any{"number": *paper.Citations}
	}
	if paper.InfluentialCitations != nil {
		props["Influential Citations"] = map[string]any{"number": *paper.InfluentialCitations}
	}
	if paper.ImpactFactor != nil {
		props["Impact (2yr mean)"] = map[string]any{"number": *paper.ImpactFactor}
	}

	if insts := InstitutionOptions(paper.Institutions); len(insts) > 0 {
		props["Institutions"] = map[string]any{"multi_select": insts}
	}

	if paper.RecommendScore != nil {
		props["Recommend Score"] = map[string]any{"number": *paper.RecommendScore}
	}
	if paper.RecommendRationale != "" {
		props["Recommend Rationale"] = map[string]any{"rich_text": TextValue(paper.RecommendRationale)}
	}
	return props
}

// InstitutionOptions dedups and caps institution names for a multi_select
// property. Notion limits option names to 100 chars.
func InstitutionOptions(institutions []string) []map[string]any {
	seen := map[string]struct{}{}
	out := make([]map[string]any, 0, len(institutions))
	for _, inst := range institutions {
		name := truncate(strings.TrimSpace(inst), 100)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, map[string]any{"name": name})
		if len(out) >= 15 {
			break
		}
	}
	return out
}

func paperFromPage(page notionPage) models.Paper {
	p := models.Paper{NotionPageID: page.ID}
	for name, prop := range page.Properties {
		switch name {
		case "Name":
			p.Title = joinRichText(prop.Title)
		case "userDefined:URL":
			p.URL = urlValue(prop)
		case "PDF Link":
			p.PDFURL = urlValue(prop)
		case "DOI":
			p.DOI = joinRichText(prop.RichText)
		case "Year":
			if prop.Number != nil {
				year := int(*prop.Number)
				p.Year = &year
			}
		case "Citations":
			p.Citations = intFromNumber(prop.Number)
		case "Influential Citations":
			p.InfluentialCitations = intFromNumber(prop.Number)
		case "Impact (2yr mean)":
			p.ImpactFactor = prop.Number
		case "Institutions":
			for _, opt := range prop.MultiSelect {
				p.Institutions = append(p.Institutions, opt.Name)
			}
		case "Recommend Score":
			p.RecommendScore = prop.Number
		case "Recommend Rationale":
			p.RecommendRationale = joinRichText(prop.RichText)
		case "Authors":
			if s := joinRichText(prop.RichText); s != "" {
				p.Authors = splitAuthors(s)
			}
		case "Abstract":
			p.Abstract = joinRichText(prop.RichText)
		}
	}
	return p
}

// MissingFields groups papers by which of the given fields they lack.
// Empty strings and empty lists count as missing; a numeric zero does not.
func MissingFields(papers []models.Paper, fields []string) map[string][]models.Paper {
	out := make(map[string][]models.Paper, len(fields))
	for _, f := range fields {
		out[f] = nil
	}
	for _, p := range papers {
		if p.NotionPageID == "" {
			continue
		}
		for _, f := range fields {
			if fieldMissing(p, f) {
				out[f] = append(out[f], p)
			}
		}
	}
	return out
}

func fieldMissing(p models.Paper, field string) bool {
	switch field {
	case "pdf_url":
		return strings.TrimSpace(p.PDFURL) == ""
	case "doi":
		return strings.TrimSpace(p.DOI) == ""
	case "url":
		return strings.TrimSpace(p.URL) == ""
	case "institutions":
		return len(p.Institutions) == 0
	case "citations":
		return p.Citations == nil
	case "recommend_score":
		return p.RecommendScore == nil
	case "recommend_rationale":
		return strings.TrimSpace(p.RecommendRationale) == ""
	default:
		return false
	}
}

func joinRichText(parts []richText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.Text.Content)
	}
	return b.String()
}

func urlValue(prop propValue) string {
	if prop.URL == nil {
		return ""
	}
	return *prop.URL
}

func intFromNumber(n *float64) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

func splitAuthors(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
