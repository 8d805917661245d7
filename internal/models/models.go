package models

import "time"

type Paper struct {
	PaperID              string    `json:"paper_id"`
	Title                string    `json:"title"`
	Authors              []string  `json:"authors,omitempty"`
	Year                 *int      `json:"year,omitempty"`
	Abstract             string    `json:"abstract,omitempty"`
	URL                  string    `json:"url,omitempty"`
	PDFURL               string    `json:"pdf_url,omitempty"`
	DOI                  string    `json:"doi,omitempty"`
	Venue                string    `json:"venue,omitempty"`
	Source               string    `json:"source,omitempty"`
	Tags                 []string  `json:"tags,omitempty"`
	Published            time.Time `json:"published"`
	Institutions         []string  `json:"institutions,omitempty"`
	Citations            *int      `json:"citations,omitempty"`
	InfluentialCitations *int      `json:"influential_citations,omitempty"`
	ImpactFactor         *float64  `json:"impact_factor,omitempty"`
	RecommendScore       *float64  `json:"recommend_score,omitempty"`
	RecommendRationale   string    `json:"recommend_rationale,omitempty"`
	NotionPageID         string    `json:"notion_page_id,omitempty"`
	Status               string    `json:"status,omitempty"`
	FailReason           string    `json:"fail_reason,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type CrawlRun struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Found      int       `json:"found"`
	Filtered   int       `json:"filtered"`
	Duplicates int       `json:"duplicates"`
	Added      int       `json:"added"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// PDFContent carries the usable parts of a downloaded paper PDF.
type PDFContent struct {
	Text      string     `json:"text,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
	Pages     int        `json:"pages,omitempty"`
	Images    []PDFImage `json:"images,omitempty"`
}

type PDFImage struct {
	Page    int    `json:"page"`
	Bytes   int    `json:"bytes"`
	DataURL string `json:"data_url"`
}
