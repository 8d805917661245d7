package workflows

import "vlaradar/internal/models"

type CrawlInput struct {
	RunID                 string `json:"run_id"`
	Mode                  string `json:"mode"`
	ArxivQuery            string `json:"arxiv_query,omitempty"`
	S2Query               string `json:"s2_query,omitempty"`
	DaysBack              int    `json:"days_back"`
	ArxivMaxResults       int    `json:"arxiv_max_results"`
	S2Enable              bool   `json:"s2_enable"`
	S2Limit               int    `json:"s2_limit"`
	MaxPapers             int    `json:"max_papers"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`

	EnrichEnable bool `json:"enrich_enable"`

	LLMEnable       bool `json:"llm_enable"`
	LLMProviders    int  `json:"llm_providers"`
	LLMMaxPapers    int  `json:"llm_max_papers"`
	LLMIntervalMs   int  `json:"llm_interval_ms"`
	LLMUsePDF       bool `json:"llm_use_pdf"`
	PDFMaxPages     int  `json:"pdf_max_pages"`
	PDFMaxChars     int  `json:"pdf_max_chars"`
	PDFUseImages    bool `json:"pdf_use_images"`
	PDFMaxImages    int  `json:"pdf_max_images"`
	FigureEnable    bool `json:"figure_enable"`
	CooldownSeconds int  `json:"cooldown_seconds"`
}

type PaperSyncInput struct {
	RunID string       `json:"run_id"`
	Paper models.Paper `json:"paper"`

	EnrichEnable bool `json:"enrich_enable"`

	// LLMEnable is decided per paper by the parent so the per-run review
	// budget holds even with concurrent children.
	LLMEnable       bool `json:"llm_enable"`
	LLMProviders    int  `json:"llm_providers"`
	LLMIntervalMs   int  `json:"llm_interval_ms"`
	LLMUsePDF       bool `json:"llm_use_pdf"`
	PDFMaxPages     int  `json:"pdf_max_pages"`
	PDFMaxChars     int  `json:"pdf_max_chars"`
	PDFUseImages    bool `json:"pdf_use_images"`
	PDFMaxImages    int  `json:"pdf_max_images"`
	FigureEnable    bool `json:"figure_enable"`
	CooldownSeconds int  `json:"cooldown_seconds"`
}

type PaperSyncResult struct {
	Status  string `json:"status"`
	PageID  string `json:"page_id,omitempty"`
	UsedLLM bool   `json:"used_llm"`
}

type BackfillInput struct {
	Fields          []string `json:"fields"`
	PerField        int      `json:"per_field"`
	ScanMax         int      `json:"scan_max"`
	LLMProviders    int      `json:"llm_providers"`
	CooldownSeconds int      `json:"cooldown_seconds"`
}

type CrawlProgress struct {
	RunID         string            `json:"run_id"`
	Stage         string            `json:"stage"`
	Found         int               `json:"found"`
	Filtered      int               `json:"filtered"`
	Duplicates    int               `json:"duplicates"`
	Added         int               `json:"added"`
	Failed        int               `json:"failed"`
	Total         int               `json:"total"`
	PerPaper      map[string]string `json:"per_paper_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}

type PaperSyncStatus struct {
	PaperID     string            `json:"paper_id"`
	Title       string            `json:"title"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Providers   []string          `json:"providers_used"`
	RetryCounts map[string]int    `json:"retry_counts"`
	Steps       map[string]string `json:"steps"`
}
