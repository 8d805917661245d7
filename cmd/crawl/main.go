package main

import (
	"context"
	"flag"
	"log"

	"vlaradar/internal/config"
	"vlaradar/internal/providers"
	"vlaradar/internal/workflows"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config overlay")
	cron := flag.String("cron", "", "Temporal cron schedule; when set the crawl repeats and the command returns immediately")
	backfill := flag.Bool("backfill", false, "run a backfill over the existing Notion database instead of a crawl")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.Load()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	pm, err := providers.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}
	c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if *backfill {
		backfillID := uuid.NewString()
		we, err := c.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
			ID:        "backfill-" + backfillID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, workflows.BackfillWorkflow, workflows.BackfillInput{
			Fields:          cfg.BackfillFieldList(),
			PerField:        cfg.BackfillPerField,
			ScanMax:         cfg.BackfillScanMax,
			LLMProviders:    pm.LLMCount(),
			CooldownSeconds: cfg.ProviderCooldownSecs,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("backfill started workflow_id=%s", we.GetID())
		var outPath string
		if err := we.Get(ctx, &outPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("backfill completed manifest=%s", outPath)
		return
	}

	runID := uuid.NewString()
	mode := "manual"
	if *cron != "" {
		mode = "scheduled"
	}
	input := workflows.CrawlInput{
		RunID:                 runID,
		Mode:                  mode,
		DaysBack:              cfg.DaysBack,
		ArxivMaxResults:       cfg.ArxivMaxResults,
		S2Enable:              cfg.SemanticScholarEnable,
		S2Limit:               cfg.SemanticScholarLimit,
		MaxPapers:             cfg.MaxPapersPerRun,
		MaxConcurrentChildren: cfg.CrawlMaxChildren,
		EnrichEnable:          cfg.EnrichEnable,
		LLMEnable:             cfg.LLMEnable,
		LLMProviders:          pm.LLMCount(),
		LLMMaxPapers:          cfg.LLMMaxPapers,
		LLMIntervalMs:         cfg.LLMIntervalMs,
		LLMUsePDF:             cfg.LLMUsePDF,
		PDFMaxPages:           cfg.PDFMaxPages,
		PDFMaxChars:           cfg.PDFMaxChars,
		PDFUseImages:          cfg.PDFUseImages,
		PDFMaxImages:          cfg.PDFMaxImages,
		FigureEnable:          cfg.FigureEnable,
		CooldownSeconds:       cfg.ProviderCooldownSecs,
	}

	opts := tclient.StartWorkflowOptions{
		ID:        "crawl-" + runID,
		TaskQueue: cfg.TemporalTaskQueue,
	}
	if *cron != "" {
		// Every cron tick re-runs the workflow with this same input, so the
		// run id is left empty and each iteration derives its own.
		input.RunID = ""
		opts.ID = "crawl-cron"
		opts.CronSchedule = *cron
	}
	we, err := c.ExecuteWorkflow(ctx, opts, workflows.CrawlWorkflow, input)
	if err != nil {
		log.Fatal(err)
	}
	if *cron != "" {
		log.Printf("cron crawl scheduled workflow_id=%s schedule=%q", we.GetID(), *cron)
		return
	}
	log.Printf("crawl started run_id=%s workflow_id=%s", runID, we.GetID())
	var out string
	if err := we.Get(ctx, &out); err != nil {
		log.Fatal(err)
	}
	log.Printf("crawl %s run_id=%s", out, runID)
}
