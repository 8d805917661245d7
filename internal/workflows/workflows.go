package workflows

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vlaradar/internal/activities"
	"vlaradar/internal/models"
	"vlaradar/internal/notion"
	"vlaradar/internal/providers"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetProgress    = "GetProgress"
	QueryGetPaperStatus = "GetPaperStatus"
)

type providerState struct {
	disabledUntil map[int]time.Time
	retries       map[string]int
}

func newProviderState() providerState {
	return providerState{disabledUntil: map[int]time.Time{}, retries: map[string]int{}}
}

func CrawlWorkflow(ctx workflow.Context, input CrawlInput) (string, error) {
	// Cron starts reuse the same input on every tick, so a caller-supplied
	// run id would collapse all scheduled iterations into one ledger row.
	// An empty run id means "one per execution".
	if input.RunID == "" {
		input.RunID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	progress := CrawlProgress{
		RunID:         input.RunID,
		Stage:         "searching",
		PerPaper:      map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (CrawlProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)
	startedAt := workflow.Now(ctx)

	_ = workflow.ExecuteActivity(ctx, "UpsertRunActivity", activities.UpsertRunInput{Run: models.CrawlRun{
		RunID:     input.RunID,
		Mode:      input.Mode,
		Status:    "running",
		StartedAt: startedAt,
	}}).Get(ctx, nil)

	var arxivOut activities.SearchOutput
	if err := workflow.ExecuteActivity(ctx, "SearchArxivActivity", activities.SearchArxivInput{
		Query:      input.ArxivQuery,
		DaysBack:   input.DaysBack,
		MaxResults: input.ArxivMaxResults,
	}).Get(ctx, &arxivOut); err != nil {
		_ = workflow.ExecuteActivity(ctx, "UpsertRunActivity", activities.UpsertRunInput{Run: models.CrawlRun{
			RunID:      input.RunID,
			Mode:       input.Mode,
			Status:     "failed",
			StartedAt:  startedAt,
			FinishedAt: workflow.Now(ctx),
		}}).Get(ctx, nil)
		return "", err
	}
	progress.Found += arxivOut.Found
	progress.Filtered += arxivOut.Filtered
	papers := arxivOut.Papers

	if input.S2Enable {
		var s2Out activities.SearchOutput
		if err := workflow.ExecuteActivity(ctx, "SearchSemanticScholarActivity", activities.SearchSemanticScholarInput{
			Query:    input.S2Query,
			DaysBack: input.DaysBack,
			Limit:    input.S2Limit,
		}).Get(ctx, &s2Out); err != nil {
			logger.Warn("semantic scholar search failed, continuing with arXiv only", "error", err)
		} else if s2Out.Skipped {
			logger.Warn("semantic scholar skipped", "reason", s2Out.SkipReason)
		} else {
			progress.Found += s2Out.Found
			progress.Filtered += s2Out.Filtered
			papers = append(papers, s2Out.Papers...)
		}
	}

	papers = mergePapers(papers)
	if input.MaxPapers > 0 && len(papers) > input.MaxPapers {
		papers = papers[:input.MaxPapers]
	}

	if err := workflow.ExecuteActivity(ctx, "EnsureNotionPropertiesActivity").Get(ctx, nil); err != nil {
		logger.Warn("could not ensure notion properties", "error", err)
	}

	progress.Stage = "deduplicating"
	var dedupOut activities.FilterDuplicatesOutput
	if err := workflow.ExecuteActivity(ctx, "FilterDuplicatesActivity", activities.FilterDuplicatesInput{Papers: papers}).Get(ctx, &dedupOut); err != nil {
		return "", err
	}
	progress.Duplicates = dedupOut.Duplicates
	papers = dedupOut.Papers
	progress.Total = len(papers)

	progress.Stage = "syncing"
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 1
	}
	llmBudget := input.LLMMaxPapers

	for i := 0; i < len(papers); i += maxChildren {
		end := i + maxChildren
		if end > len(papers) {
			end = len(papers)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childTitles := make([]string, 0, end-i)
		for _, p := range papers[i:end] {
			progress.PerPaper[p.Title] = "processing"
			workflowID := "paper-" + shortID(p.PaperID)
			cwo := workflow.ChildWorkflowOptions{WorkflowID: workflowID}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			useLLM := input.LLMEnable && llmBudget != 0
			if useLLM && llmBudget > 0 {
				llmBudget--
			}
			f := workflow.ExecuteChildWorkflow(childCtx, PaperSyncWorkflow, PaperSyncInput{
				RunID:           input.RunID,
				Paper:           p,
				EnrichEnable:    input.EnrichEnable,
				LLMEnable:       useLLM,
				LLMProviders:    input.LLMProviders,
				LLMIntervalMs:   input.LLMIntervalMs,
				LLMUsePDF:       input.LLMUsePDF,
				PDFMaxPages:     input.PDFMaxPages,
				PDFMaxChars:     input.PDFMaxChars,
				PDFUseImages:    input.PDFUseImages,
				PDFMaxImages:    input.PDFMaxImages,
				FigureEnable:    input.FigureEnable,
				CooldownSeconds: input.CooldownSeconds,
			})
			futures = append(futures, f)
			childTitles = append(childTitles, p.Title)
			progress.ChildWorkflow[p.Title] = workflowID
		}

		for idx, f := range futures {
			var result PaperSyncResult
			err := f.Get(ctx, &result)
			title := childTitles[idx]
			if err != nil || result.Status == "failed" {
				progress.Failed++
				progress.PerPaper[title] = "failed"
				continue
			}
			progress.Added++
			progress.PerPaper[title] = result.Status
		}
	}

	progress.Stage = "done"
	finishedAt := workflow.Now(ctx)
	_ = workflow.ExecuteActivity(ctx, "WriteRunSummaryActivity", activities.WriteRunSummaryInput{
		RunID: input.RunID,
		Summary: map[string]any{
			"run_id":           input.RunID,
			"mode":             input.Mode,
			"found":            progress.Found,
			"filtered":         progress.Filtered,
			"duplicates":       progress.Duplicates,
			"added":            progress.Added,
			"failed":           progress.Failed,
			"per_paper_status": progress.PerPaper,
			"started_at":       startedAt,
			"finished_at":      finishedAt,
		},
	}).Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "UpsertRunActivity", activities.UpsertRunInput{Run: models.CrawlRun{
		RunID:      input.RunID,
		Mode:       input.Mode,
		Status:     "completed",
		Found:      progress.Found,
		Filtered:   progress.Filtered,
		Duplicates: progress.Duplicates,
		Added:      progress.Added,
		Failed:     progress.Failed,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}}).Get(ctx, nil)

	return "completed", nil
}

func PaperSyncWorkflow(ctx workflow.Context, input PaperSyncInput) (PaperSyncResult, error) {
	paper := input.Paper
	status := PaperSyncStatus{
		PaperID:     paper.PaperID,
		Title:       paper.Title,
		CurrentStep: "init",
		Status:      "processing",
		RetryCounts: map[string]int{},
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetPaperStatus, func() (PaperSyncStatus, error) {
		return status, nil
	}); err != nil {
		return PaperSyncResult{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)
	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := input.LLMProviders
	if providerCount <= 0 {
		providerCount = 1
	}
	state := newProviderState()
	result := PaperSyncResult{}

	fail := func(step, reason string) (PaperSyncResult, error) {
		status.Status = "failed"
		status.FailReason = reason
		status.Steps[step] = "failed"
		_ = workflow.ExecuteActivity(ctx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
			PaperID:    paper.PaperID,
			Status:     "failed",
			FailReason: reason,
		}).Get(ctx, nil)
		return PaperSyncResult{Status: "failed", UsedLLM: result.UsedLLM}, nil
	}

	status.CurrentStep = "record"
	status.Steps[status.CurrentStep] = "processing"
	paper.Status = "pending"
	if err := workflow.ExecuteActivity(ctx, "UpsertPaperActivity", activities.UpsertPaperInput{RunID: input.RunID, Paper: paper}).Get(ctx, nil); err != nil {
		return PaperSyncResult{}, err
	}
	status.Steps[status.CurrentStep] = "done"

	if input.EnrichEnable {
		status.CurrentStep = "enrich"
		status.Steps[status.CurrentStep] = "processing"
		var enriched activities.EnrichMetricsOutput
		if err := workflow.ExecuteActivity(ctx, "EnrichMetricsActivity", activities.EnrichMetricsInput{Paper: paper}).Get(ctx, &enriched); err != nil {
			logger.Warn("metrics enrichment failed, keeping source metadata", "error", err)
			status.Steps[status.CurrentStep] = "skipped"
		} else {
			paper = enriched.Paper
			status.Steps[status.CurrentStep] = "done"
		}
	}

	var pdfContent *models.PDFContent
	figureURL := ""
	if (input.LLMUsePDF || input.FigureEnable) && paper.PDFURL != "" {
		status.CurrentStep = "fetch_pdf"
		status.Steps[status.CurrentStep] = "processing"
		var content activities.FetchPaperContentOutput
		err := workflow.ExecuteActivity(ctx, "FetchPaperContentActivity", activities.FetchPaperContentInput{
			PDFURL:     paper.PDFURL,
			MaxPages:   input.PDFMaxPages,
			MaxChars:   input.PDFMaxChars,
			WithImages: input.PDFUseImages || input.FigureEnable,
			MaxImages:  input.PDFMaxImages,
		}).Get(ctx, &content)
		if err != nil {
			logger.Warn("pdf fetch failed, scoring on metadata only", "error", err)
			status.Steps[status.CurrentStep] = "skipped"
		} else {
			if input.LLMUsePDF {
				c := content.Content
				if !input.PDFUseImages {
					c.Images = nil
				}
				pdfContent = &c
			}
			figureURL = content.FigureDataURL
			status.Steps[status.CurrentStep] = "done"
		}
	}

	status.CurrentStep = "score"
	status.Steps[status.CurrentStep] = "processing"
	scored := false
	if input.LLMEnable {
		if input.LLMIntervalMs > 0 {
			_ = workflow.Sleep(ctx, time.Duration(input.LLMIntervalMs)*time.Millisecond)
		}
		reviewInput := activities.ScorePaperInput{
			Operation: "review_paper",
			Paper:     paper,
			PDF:       pdfContent,
		}
		out, errType, err := callReviewWithFailover(ctx, &state, providerCount, cooldown, input.RunID, reviewInput, status.RetryCounts)
		if err != nil && errType == string(providers.ErrorContext) && reviewInput.PDF != nil {
			reviewInput.PDF = nil
			out, _, err = callReviewWithFailover(ctx, &state, providerCount, cooldown, input.RunID, reviewInput, status.RetryCounts)
		}
		if err != nil {
			logger.Warn("llm review failed, falling back to rule score", "error", err)
		} else {
			paper.RecommendScore = &out.Score
			paper.RecommendRationale = out.Rationale
			status.Providers = append(status.Providers, out.ProviderName)
			result.UsedLLM = true
			scored = true
		}
	}
	if !scored {
		var ruleOut activities.RuleScoreOutput
		if err := workflow.ExecuteActivity(ctx, "RuleScoreActivity", activities.RuleScoreInput{Paper: paper}).Get(ctx, &ruleOut); err != nil {
			return fail("score", "scoring failed: "+err.Error())
		}
		paper.RecommendScore = &ruleOut.Score
		paper.RecommendRationale = ruleOut.Rationale
	}
	status.Steps["score"] = "done"
	_ = workflow.ExecuteActivity(ctx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
		PaperID: paper.PaperID,
		Status:  "scored",
	}).Get(ctx, nil)

	status.CurrentStep = "sync_notion"
	status.Steps[status.CurrentStep] = "processing"
	var syncOut activities.SyncPaperOutput
	if err := workflow.ExecuteActivity(ctx, "SyncPaperActivity", activities.SyncPaperInput{RunID: input.RunID, Paper: paper}).Get(ctx, &syncOut); err != nil {
		return fail("sync_notion", "notion sync failed: "+err.Error())
	}
	status.Steps[status.CurrentStep] = "done"
	result.PageID = syncOut.PageID

	if input.FigureEnable && figureURL != "" {
		status.CurrentStep = "attach_figure"
		status.Steps[status.CurrentStep] = "processing"
		if err := workflow.ExecuteActivity(ctx, "AttachFigureActivity", activities.AttachFigureInput{
			PageID:   syncOut.PageID,
			ImageURL: figureURL,
			Name:     "framework.png",
		}).Get(ctx, nil); err != nil {
			logger.Warn("figure attach failed", "error", err)
			status.Steps[status.CurrentStep] = "skipped"
		} else {
			status.Steps[status.CurrentStep] = "done"
		}
	}

	status.CurrentStep = "done"
	status.Status = "synced"
	result.Status = "synced"
	return result, nil
}

func BackfillWorkflow(ctx workflow.Context, input BackfillInput) (string, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	runID := info.WorkflowExecution.RunID

	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := input.LLMProviders
	if providerCount <= 0 {
		providerCount = 1
	}
	perField := input.PerField
	if perField <= 0 {
		perField = 20
	}
	state := newProviderState()
	retryCounts := map[string]int{}

	var listOut activities.ListNotionPapersOutput
	if err := workflow.ExecuteActivity(ctx, "ListNotionPapersActivity", activities.ListNotionPapersInput{Limit: input.ScanMax}).Get(ctx, &listOut); err != nil {
		return "", err
	}
	missing := notion.MissingFields(listOut.Papers, input.Fields)

	manifest := map[string]any{
		"run_id":     runID,
		"scanned":    len(listOut.Papers),
		"started_at": workflow.Now(ctx),
	}
	for _, field := range input.Fields {
		todo := missing[field]
		if len(todo) > perField {
			todo = todo[:perField]
		}
		patched, failed := 0, 0
		for _, p := range todo {
			var out activities.PatchNotionFieldOutput
			var err error
			if field == "recommend_score" {
				out, err = patchScoreWithFailover(ctx, &state, providerCount, cooldown, runID, p, retryCounts)
			} else {
				err = workflow.ExecuteActivity(ctx, "PatchNotionFieldActivity", activities.PatchNotionFieldInput{Field: field, Paper: p}).Get(ctx, &out)
			}
			if err != nil {
				logger.Warn("backfill patch failed", "field", field, "title", p.Title, "error", err)
				failed++
				continue
			}
			if out.Patched {
				patched++
			}
		}
		manifest["field_"+field] = map[string]any{"candidates": len(missing[field]), "patched": patched, "failed": failed}
	}
	manifest["finished_at"] = workflow.Now(ctx)

	var out activities.WriteRunSummaryOutput
	if err := workflow.ExecuteActivity(ctx, "WriteRunSummaryActivity", activities.WriteRunSummaryInput{RunID: runID, Summary: manifest}).Get(ctx, &out); err != nil {
		return "", err
	}
	return out.Path, nil
}

func callReviewWithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, runID string, input activities.ScorePaperInput, retryCounts map[string]int) (activities.ScorePaperOutput, string, error) {
	if retryCounts == nil {
		retryCounts = map[string]int{}
	}
	var lastErr error
	for attempt := 0; attempt < providerCount*4; attempt++ {
		idx := attempt % providerCount
		if isProviderDisabled(ctx, state, idx) {
			continue
		}
		input.ProviderIndex = idx
		var out activities.ScorePaperOutput
		err := workflow.ExecuteActivity(ctx, "ScorePaperActivity", input).Get(ctx, &out)
		if err == nil {
			_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: input.Operation, RunID: runID, PaperID: input.Paper.PaperID, ProviderName: out.ProviderName, Model: out.Model, RequestID: fmt.Sprintf("%s-%d", input.Operation, attempt), Status: "ok"}).Get(ctx, nil)
			return out, "", nil
		}
		lastErr = err
		errType := providers.ClassifyError(err)
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: input.Operation, RunID: runID, PaperID: input.Paper.PaperID, ProviderName: fmt.Sprintf("provider-%d", idx), RequestID: fmt.Sprintf("%s-%d", input.Operation, attempt), Status: "failed", ErrorType: string(errType)}).Get(ctx, nil)
		key := fmt.Sprintf("review-%d", idx)
		retryCounts[key]++
		switch errType {
		case providers.ErrorQuota:
			disableProviderUntil(ctx, state, idx, cooldown)
		case providers.ErrorRate:
			if retryCounts[key] <= 2 {
				_ = workflow.Sleep(ctx, time.Duration(retryCounts[key]*2)*time.Second)
				attempt--
			} else {
				disableProviderUntil(ctx, state, idx, 2*time.Minute)
			}
		case providers.ErrorTransient:
			if retryCounts[key] <= 2 {
				_ = workflow.Sleep(ctx, time.Duration(retryCounts[key])*time.Second)
				attempt--
			}
		case providers.ErrorContext:
			return activities.ScorePaperOutput{}, string(providers.ErrorContext), err
		default:
			disableProviderUntil(ctx, state, idx, time.Minute)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all review providers exhausted")
	}
	return activities.ScorePaperOutput{}, string(providers.ClassifyError(lastErr)), lastErr
}

func patchScoreWithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, runID string, paper models.Paper, retryCounts map[string]int) (activities.PatchNotionFieldOutput, error) {
	var lastErr error
	for attempt := 0; attempt < providerCount*4; attempt++ {
		idx := attempt % providerCount
		if isProviderDisabled(ctx, state, idx) {
			continue
		}
		var out activities.PatchNotionFieldOutput
		err := workflow.ExecuteActivity(ctx, "PatchNotionFieldActivity", activities.PatchNotionFieldInput{Field: "recommend_score", Paper: paper, ProviderIndex: idx}).Get(ctx, &out)
		if err == nil {
			return out, nil
		}
		lastErr = err
		errType := providers.ClassifyError(err)
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: "backfill_review", RunID: runID, PaperID: paper.PaperID, ProviderName: fmt.Sprintf("provider-%d", idx), RequestID: fmt.Sprintf("backfill-%d", attempt), Status: "failed", ErrorType: string(errType)}).Get(ctx, nil)
		key := fmt.Sprintf("backfill-%d", idx)
		retryCounts[key]++
		switch errType {
		case providers.ErrorQuota:
			disableProviderUntil(ctx, state, idx, cooldown)
		case providers.ErrorRate, providers.ErrorTransient:
			if retryCounts[key] <= 2 {
				_ = workflow.Sleep(ctx, time.Duration(retryCounts[key])*time.Second)
				attempt--
			} else {
				disableProviderUntil(ctx, state, idx, 2*time.Minute)
			}
		default:
			disableProviderUntil(ctx, state, idx, time.Minute)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all review providers exhausted")
	}
	return activities.PatchNotionFieldOutput{}, lastErr
}

func isProviderDisabled(ctx workflow.Context, state *providerState, idx int) bool {
	until, ok := state.disabledUntil[idx]
	if !ok {
		return false
	}
	return workflow.Now(ctx).Before(until)
}

func disableProviderUntil(ctx workflow.Context, state *providerState, idx int, d time.Duration) {
	state.disabledUntil[idx] = workflow.Now(ctx).Add(d)
}

// mergePapers drops same-title hits across sources (arXiv first wins) and
// orders the rest newest first.
func mergePapers(papers []models.Paper) []models.Paper {
	seen := map[string]struct{}{}
	out := make([]models.Paper, 0, len(papers))
	for _, p := range papers {
		key := strings.ToLower(strings.TrimSpace(p.Title))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(out[j].Published)
	})
	return out
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func durationOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
