package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(CrawlWorkflow)
	w.RegisterWorkflow(PaperSyncWorkflow)
	w.RegisterWorkflow(BackfillWorkflow)
}
