package activities

import "vlaradar/internal/models"

type SearchArxivInput struct {
	Query      string `json:"query"`
	DaysBack   int    `json:"days_back"`
	MaxResults int    `json:"max_results"`
}

type SearchSemanticScholarInput struct {
	Query    string `json:"query"`
	DaysBack int    `json:"days_back"`
	Limit    int    `json:"limit"`
}

// SearchOutput is shared by the source search activities. Found counts raw
// hits from the source, Filtered counts the papers that passed the topic
// filter (and are returned). Skipped marks a source that bowed out, for
// example on a rate limit.
type SearchOutput struct {
	Papers     []models.Paper `json:"papers"`
	Found      int            `json:"found"`
	Filtered   int            `json:"filtered"`
	Skipped    bool           `json:"skipped,omitempty"`
	SkipReason string         `json:"skip_reason,omitempty"`
}

type FilterDuplicatesInput struct {
	Papers []models.Paper `json:"papers"`
}

type FilterDuplicatesOutput struct {
	Papers     []models.Paper `json:"papers"`
	Duplicates int            `json:"duplicates"`
}

type EnrichMetricsInput struct {
	Paper models.Paper `json:"paper"`
}

type EnrichMetricsOutput struct {
	Paper models.Paper `json:"paper"`
}

type FetchPaperContentInput struct {
	PDFURL     string `json:"pdf_url"`
	MaxPages   int    `json:"max_pages"`
	MaxChars   int    `json:"max_chars"`
	WithImages bool   `json:"with_images"`
	MaxImages  int    `json:"max_images"`
}

type FetchPaperContentOutput struct {
	Content       models.PDFContent `json:"content"`
	FigureDataURL string            `json:"figure_data_url,omitempty"`
}

type ScorePaperInput struct {
	Operation     string             `json:"operation"`
	Paper         models.Paper       `json:"paper"`
	PDF           *models.PDFContent `json:"pdf,omitempty"`
	ProviderIndex int                `json:"provider_index"`
}

type ScorePaperOutput struct {
	Score        float64 `json:"score"`
	Rationale    string  `json:"rationale"`
	ProviderName string  `json:"provider_name"`
	Model        string  `json:"model"`
}

type RuleScoreInput struct {
	Paper models.Paper `json:"paper"`
}

type RuleScoreOutput struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

type UpsertPaperInput struct {
	RunID string       `json:"run_id"`
	Paper models.Paper `json:"paper"`
}

type SyncPaperInput struct {
	RunID string       `json:"run_id"`
	Paper models.Paper `json:"paper"`
}

type SyncPaperOutput struct {
	PageID string `json:"page_id"`
}

type AttachFigureInput struct {
	PageID   string `json:"page_id"`
	ImageURL string `json:"image_url"`
	Name     string `json:"name"`
}

type ListNotionPapersInput struct {
	Limit int `json:"limit"`
}

type ListNotionPapersOutput struct {
	Papers []models.Paper `json:"papers"`
}

type PatchNotionFieldInput struct {
	Field         string       `json:"field"`
	Paper         models.Paper `json:"paper"`
	ProviderIndex int          `json:"provider_index"`
}

type PatchNotionFieldOutput struct {
	Patched bool `json:"patched"`
}

type UpsertRunInput struct {
	Run models.CrawlRun `json:"run"`
}

type UpdatePaperStatusInput struct {
	PaperID    string `json:"paper_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason"`
}

type LogLLMCallInput struct {
	CallID       string `json:"call_id"`
	Operation    string `json:"operation"`
	RunID        string `json:"run_id"`
	PaperID      string `json:"paper_id"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
}

type WriteRunSummaryInput struct {
	RunID   string         `json:"run_id"`
	Summary map[string]any `json:"summary"`
}

type WriteRunSummaryOutput struct {
	Path string `json:"path"`
}
