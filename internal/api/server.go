package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vlaradar/internal/config"
	"vlaradar/internal/providers"
	"vlaradar/internal/storage"
	"vlaradar/internal/workflows"

	"github.com/google/uuid"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg       config.Config
	db        *storage.DB
	paperRepo *storage.PaperRepo
	runRepo   *storage.RunRepo
	providers *providers.Manager
	temporal  tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:       cfg,
		db:        db,
		paperRepo: storage.NewPaperRepo(db),
		runRepo:   storage.NewRunRepo(db),
		providers: pm,
		temporal:  tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/crawl", s.handleCrawl)
	mux.HandleFunc("/backfill", s.handleBackfill)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunsScoped)
	mux.HandleFunc("/papers", s.handlePapers)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Mode       string `json:"mode"`
		DaysBack   int    `json:"days_back"`
		ArxivQuery string `json:"arxiv_query"`
		S2Query    string `json:"s2_query"`
		MaxPapers  int    `json:"max_papers"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if req.Mode == "" {
		req.Mode = "manual"
	}

	runID := uuid.NewString()
	input := s.crawlInput(runID, req.Mode)
	if req.DaysBack > 0 {
		input.DaysBack = req.DaysBack
	}
	if req.ArxivQuery != "" {
		input.ArxivQuery = req.ArxivQuery
	}
	if req.S2Query != "" {
		input.S2Query = req.S2Query
	}
	if req.MaxPapers > 0 {
		input.MaxPapers = req.MaxPapers
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:        "crawl-" + runID,
		TaskQueue: s.cfg.TemporalTaskQueue,
	}, workflows.CrawlWorkflow, input)
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID(), "temporal_run_id": we.GetRunID()})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Fields   []string `json:"fields"`
		PerField int      `json:"per_field"`
		ScanMax  int      `json:"scan_max"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if len(req.Fields) == 0 {
		req.Fields = s.cfg.BackfillFieldList()
	}
	if req.PerField <= 0 {
		req.PerField = s.cfg.BackfillPerField
	}
	if req.ScanMax <= 0 {
		req.ScanMax = s.cfg.BackfillScanMax
	}

	backfillID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:        "backfill-" + backfillID,
		TaskQueue: s.cfg.TemporalTaskQueue,
	}, workflows.BackfillWorkflow, workflows.BackfillInput{
		Fields:          req.Fields,
		PerField:        req.PerField,
		ScanMax:         req.ScanMax,
		LLMProviders:    s.providers.LLMCount(),
		CooldownSeconds: s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"backfill_id": backfillID, "workflow_id": we.GetID(), "temporal_run_id": we.GetRunID()})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	runs, err := s.runRepo.List(r.Context(), queryLimit(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRunsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	runID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		run, err := s.runRepo.Get(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	if len(parts) == 2 && parts[1] == "progress" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var prog workflows.CrawlProgress
		resp, err := s.temporal.QueryWorkflow(r.Context(), "crawl-"+runID, "", workflows.QueryGetProgress)
		if err != nil {
			// Fallback to DB-derived progress when no live workflow answers.
			run, rErr := s.runRepo.Get(r.Context(), runID)
			if rErr != nil {
				writeErr(w, http.StatusNotFound, rErr)
				return
			}
			papers, pErr := s.paperRepo.ListByRun(r.Context(), runID)
			if pErr != nil {
				writeErr(w, http.StatusInternalServerError, pErr)
				return
			}
			per := make(map[string]string, len(papers))
			for _, p := range papers {
				per[p.Title] = p.Status
			}
			writeJSON(w, http.StatusOK, workflows.CrawlProgress{
				RunID:      runID,
				Stage:      run.Status,
				Found:      run.Found,
				Filtered:   run.Filtered,
				Duplicates: run.Duplicates,
				Added:      run.Added,
				Failed:     run.Failed,
				Total:      len(papers),
				PerPaper:   per,
			})
			return
		}
		if err := resp.Get(&prog); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
		return
	}

	if len(parts) == 2 && parts[1] == "papers" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		papers, err := s.paperRepo.ListByRun(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	papers, err := s.paperRepo.List(r.Context(), queryLimit(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
}

func (s *Server) crawlInput(runID, mode string) workflows.CrawlInput {
	return workflows.CrawlInput{
		RunID:                 runID,
		Mode:                  mode,
		DaysBack:              s.cfg.DaysBack,
		ArxivMaxResults:       s.cfg.ArxivMaxResults,
		S2Enable:              s.cfg.SemanticScholarEnable,
		S2Limit:               s.cfg.SemanticScholarLimit,
		MaxPapers:             s.cfg.MaxPapersPerRun,
		MaxConcurrentChildren: s.cfg.CrawlMaxChildren,
		EnrichEnable:          s.cfg.EnrichEnable,
		LLMEnable:             s.cfg.LLMEnable,
		LLMProviders:          s.providers.LLMCount(),
		LLMMaxPapers:          s.cfg.LLMMaxPapers,
		LLMIntervalMs:         s.cfg.LLMIntervalMs,
		LLMUsePDF:             s.cfg.LLMUsePDF,
		PDFMaxPages:           s.cfg.PDFMaxPages,
		PDFMaxChars:           s.cfg.PDFMaxChars,
		PDFUseImages:          s.cfg.PDFUseImages,
		PDFMaxImages:          s.cfg.PDFMaxImages,
		FigureEnable:          s.cfg.FigureEnable,
		CooldownSeconds:       s.cfg.ProviderCooldownSecs,
	}
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "VR-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "VR-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "VR-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "VR-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "VR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "VR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "VR-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "VR-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		if strings.Contains(raw, "invalid json") {
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
