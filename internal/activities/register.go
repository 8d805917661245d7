package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.SearchArxivActivity)
	w.RegisterActivity(a.SearchSemanticScholarActivity)
	w.RegisterActivity(a.FilterDuplicatesActivity)
	w.RegisterActivity(a.EnsureNotionPropertiesActivity)
	w.RegisterActivity(a.EnrichMetricsActivity)
	w.RegisterActivity(a.FetchPaperContentActivity)
	w.RegisterActivity(a.ScorePaperActivity)
	w.RegisterActivity(a.RuleScoreActivity)
	w.RegisterActivity(a.UpsertPaperActivity)
	w.RegisterActivity(a.SyncPaperActivity)
	w.RegisterActivity(a.AttachFigureActivity)
	w.RegisterActivity(a.ListNotionPapersActivity)
	w.RegisterActivity(a.PatchNotionFieldActivity)
	w.RegisterActivity(a.UpsertRunActivity)
	w.RegisterActivity(a.UpdatePaperStatusActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
	w.RegisterActivity(a.WriteRunSummaryActivity)
}
