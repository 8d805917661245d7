package activities

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vlaradar/internal/config"
	"vlaradar/internal/enrich"
	"vlaradar/internal/models"
	"vlaradar/internal/notion"
	"vlaradar/internal/pdfx"
	"vlaradar/internal/providers"
	"vlaradar/internal/scoring"
	"vlaradar/internal/sources"
	"vlaradar/internal/storage"
	"vlaradar/internal/util"
	"vlaradar/internal/vlafilter"

	"go.temporal.io/sdk/activity"
)

type Activities struct {
	cfg          config.Config
	paperRepo    *storage.PaperRepo
	runRepo      *storage.RunRepo
	llmAuditRepo *storage.LLMAuditRepo
	notion       *notion.Client
	arxiv        *sources.ArxivClient
	s2           *sources.SemanticScholarClient
	enricher     *enrich.Enricher
	rules        *scoring.RuleEngine
	reviewer     *scoring.Reviewer
	providers    *providers.Manager
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:          cfg,
		paperRepo:    storage.NewPaperRepo(db),
		runRepo:      storage.NewRunRepo(db),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		notion:       notion.NewClient(cfg.NotionToken, cfg.NotionDatabaseID, time.Duration(cfg.NotionDelayMs)*time.Millisecond),
		arxiv:        sources.NewArxivClient(),
		s2:           sources.NewSemanticScholarClient(cfg.SemanticScholarKey),
		enricher:     enrich.New(cfg.SemanticScholarKey, cfg.OpenAlexMailto),
		rules:        scoring.NewRuleEngine(cfg.ScoreWeights),
		reviewer:     scoring.NewReviewer(cfg.LLMTemperature, cfg.LLMMaxTokens),
		providers:    pm,
	}, nil
}

func (a *Activities) SearchArxivActivity(ctx context.Context, in SearchArxivInput) (SearchOutput, error) {
	if in.Query == "" {
		in.Query = sources.DefaultArxivQuery
	}
	raw, err := a.arxiv.Search(ctx, in.Query, in.DaysBack, in.MaxResults)
	if err != nil {
		return SearchOutput{}, fmt.Errorf("arxiv search: %w", err)
	}
	kept := keepRelated(raw)
	return SearchOutput{Papers: kept, Found: len(raw), Filtered: len(kept)}, nil
}

func (a *Activities) SearchSemanticScholarActivity(ctx context.Context, in SearchSemanticScholarInput) (SearchOutput, error) {
	if in.Query == "" {
		in.Query = sources.DefaultSemanticScholarQuery
	}
	raw, err := a.s2.Search(ctx, in.Query, in.DaysBack, in.Limit)
	if err != nil {
		if errors.Is(err, sources.ErrRateLimited) {
			activity.GetLogger(ctx).Warn("semantic scholar rate limited, skipping source")
			return SearchOutput{Skipped: true, SkipReason: "rate_limited"}, nil
		}
		return SearchOutput{}, fmt.Errorf("semantic scholar search: %w", err)
	}
	kept := keepRelated(raw)
	return SearchOutput{Papers: kept, Found: len(raw), Filtered: len(kept)}, nil
}

func (a *Activities) FilterDuplicatesActivity(ctx context.Context, in FilterDuplicatesInput) (FilterDuplicatesOutput, error) {
	if !a.cfg.DedupEnable {
		return FilterDuplicatesOutput{Papers: in.Papers}, nil
	}
	unique, dups, err := a.notion.FilterNew(ctx, in.Papers)
	if err != nil {
		return FilterDuplicatesOutput{}, fmt.Errorf("filter duplicates: %w", err)
	}
	return FilterDuplicatesOutput{Papers: unique, Duplicates: dups}, nil
}

func (a *Activities) EnsureNotionPropertiesActivity(ctx context.Context) error {
	return a.notion.EnsureProperties(ctx)
}

// EnrichMetricsActivity fills in citations, institutions and venue impact
// where the source left gaps. Lookups are best-effort; the paper comes back
// unchanged where nothing was found.
func (a *Activities) EnrichMetricsActivity(ctx context.Context, in EnrichMetricsInput) (EnrichMetricsOutput, error) {
	p := in.Paper
	if p.Citations == nil {
		cites, infl := a.enricher.CitationCounts(ctx, p)
		if cites != nil {
			p.Citations = cites
			p.InfluentialCitations = infl
		}
	}
	if len(p.Institutions) == 0 {
		p.Institutions = a.enricher.Institutions(ctx, p)
	}
	if p.ImpactFactor == nil {
		p.ImpactFactor = a.enricher.ImpactFactor(ctx, p)
	}
	return EnrichMetricsOutput{Paper: p}, nil
}

func (a *Activities) FetchPaperContentActivity(ctx context.Context, in FetchPaperContentInput) (FetchPaperContentOutput, error) {
	path, err := pdfx.Download(ctx, in.PDFURL)
	if err != nil {
		return FetchPaperContentOutput{}, fmt.Errorf("download pdf: %w", err)
	}
	defer os.Remove(path)

	content, err := pdfx.ExtractText(path, in.MaxPages, in.MaxChars)
	if err != nil && !errors.Is(err, util.ErrNoExtractableText) {
		return FetchPaperContentOutput{}, fmt.Errorf("extract pdf text: %w", err)
	}
	out := FetchPaperContentOutput{Content: content}
	if in.WithImages {
		images, imgErr := pdfx.ExtractImages(path, in.MaxPages, in.MaxImages)
		if imgErr != nil {
			activity.GetLogger(ctx).Warn("pdf image extraction failed", "error", imgErr)
		} else {
			out.Content.Images = images
			if fig, ok := pdfx.SelectFigure(images); ok {
				out.FigureDataURL = fig.DataURL
			}
		}
	}
	if out.Content.Text == "" && len(out.Content.Images) == 0 {
		return FetchPaperContentOutput{}, util.ErrNoExtractableText
	}
	return out, nil
}

func (a *Activities) ScorePaperActivity(ctx context.Context, in ScorePaperInput) (ScorePaperOutput, error) {
	provider, ref := a.providers.LLMProviderByIndex(in.ProviderIndex)
	score, rationale, info, err := a.reviewer.Review(ctx, provider, in.Paper, in.PDF)
	if err != nil {
		return ScorePaperOutput{}, fmt.Errorf("review via %s failed: %w", ref.Raw, err)
	}
	return ScorePaperOutput{
		Score:        score,
		Rationale:    rationale,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) RuleScoreActivity(ctx context.Context, in RuleScoreInput) (RuleScoreOutput, error) {
	_ = ctx
	score := a.rules.Compute(in.Paper)
	return RuleScoreOutput{
		Score:     score,
		Rationale: "Rule-based score from freshness, citation counts, venue impact and source quality.",
	}, nil
}

func (a *Activities) UpsertPaperActivity(ctx context.Context, in UpsertPaperInput) error {
	return a.paperRepo.Upsert(ctx, in.RunID, in.Paper)
}

func (a *Activities) SyncPaperActivity(ctx context.Context, in SyncPaperInput) (SyncPaperOutput, error) {
	pageID, err := a.notion.CreatePaper(ctx, in.Paper)
	if err != nil {
		return SyncPaperOutput{}, fmt.Errorf("create notion page: %w", err)
	}
	p := in.Paper
	p.NotionPageID = pageID
	p.Status = "synced"
	if err := a.paperRepo.Upsert(ctx, in.RunID, p); err != nil {
		return SyncPaperOutput{}, fmt.Errorf("upsert paper ledger: %w", err)
	}
	return SyncPaperOutput{PageID: pageID}, nil
}

func (a *Activities) AttachFigureActivity(ctx context.Context, in AttachFigureInput) error {
	return a.notion.SetFigure(ctx, in.PageID, in.ImageURL, in.Name)
}

func (a *Activities) ListNotionPapersActivity(ctx context.Context, in ListNotionPapersInput) (ListNotionPapersOutput, error) {
	papers, err := a.notion.ListPapers(ctx, in.Limit)
	if err != nil {
		return ListNotionPapersOutput{}, fmt.Errorf("list notion papers: %w", err)
	}
	return ListNotionPapersOutput{Papers: papers}, nil
}

// PatchNotionFieldActivity fills one missing field on an existing page.
// Patched is false when the lookup produced nothing to write.
func (a *Activities) PatchNotionFieldActivity(ctx context.Context, in PatchNotionFieldInput) (PatchNotionFieldOutput, error) {
	p := in.Paper
	if p.NotionPageID == "" {
		return PatchNotionFieldOutput{}, fmt.Errorf("paper has no notion page id")
	}
	updates := map[string]any{}
	switch in.Field {
	case "pdf_url":
		if u := enrich.ArxivPDFURL(p.URL, p.DOI); u != "" {
			updates["PDF Link"] = map[string]any{"url": u}
		}
	case "citations":
		cites, infl := a.enricher.CitationCounts(ctx, p)
		if cites != nil {
			updates["Citations"] = map[string]any{"number": *cites}
			if infl != nil {
				updates["Influential Citations"] = map[string]any{"number": *infl}
			}
		}
	case "institutions":
		if insts := a.enricher.Institutions(ctx, p); len(insts) > 0 {
			updates["Institutions"] = map[string]any{"multi_select": notion.InstitutionOptions(insts)}
		}
	case "recommend_score":
		provider, ref := a.providers.LLMProviderByIndex(in.ProviderIndex)
		score, rationale, _, err := a.reviewer.Review(ctx, provider, p, nil)
		if err != nil {
			return PatchNotionFieldOutput{}, fmt.Errorf("review via %s failed: %w", ref.Raw, err)
		}
		updates["Recommend Score"] = map[string]any{"number": score}
		if rationale != "" {
			updates["Recommend Rationale"] = map[string]any{"rich_text": notion.TextValue(rationale)}
		}
	default:
		return PatchNotionFieldOutput{}, fmt.Errorf("unknown backfill field: %s", in.Field)
	}
	if len(updates) == 0 {
		return PatchNotionFieldOutput{}, nil
	}
	if err := a.notion.UpdatePage(ctx, p.NotionPageID, updates); err != nil {
		return PatchNotionFieldOutput{}, fmt.Errorf("patch notion page: %w", err)
	}
	return PatchNotionFieldOutput{Patched: true}, nil
}

func (a *Activities) UpsertRunActivity(ctx context.Context, in UpsertRunInput) error {
	return a.runRepo.Upsert(ctx, in.Run)
}

func (a *Activities) UpdatePaperStatusActivity(ctx context.Context, in UpdatePaperStatusInput) error {
	return a.paperRepo.UpdateStatus(ctx, in.PaperID, in.Status, in.FailReason)
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	return a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		CallID:       in.CallID,
		Operation:    in.Operation,
		RunID:        in.RunID,
		PaperID:      in.PaperID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		RequestID:    in.RequestID,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
	})
}

func (a *Activities) WriteRunSummaryActivity(ctx context.Context, in WriteRunSummaryInput) (WriteRunSummaryOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID, "summary.json")
	if err := util.WriteJSONAtomic(path, in.Summary); err != nil {
		return WriteRunSummaryOutput{}, err
	}
	return WriteRunSummaryOutput{Path: path}, nil
}

func keepRelated(papers []models.Paper) []models.Paper {
	kept := make([]models.Paper, 0, len(papers))
	for _, p := range papers {
		if !vlafilter.Related(p.Title, p.Abstract) {
			continue
		}
		if p.PaperID == "" {
			p.PaperID = util.SHA256Hex([]byte(strings.ToLower(strings.TrimSpace(p.Title))))
		}
		kept = append(kept, p)
	}
	return kept
}
