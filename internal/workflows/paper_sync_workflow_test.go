package workflows

import (
	"context"
	"errors"
	"testing"

	"vlaradar/internal/activities"
	"vlaradar/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func testPaper() models.Paper {
	return models.Paper{
		PaperID:  "abc123def456789",
		Title:    "RT-9: A Vision-Language-Action Model",
		Abstract: "We present a VLA model for robot control.",
		URL:      "https://arxiv.org/abs/2501.00001",
		PDFURL:   "https://arxiv.org/pdf/2501.00001.pdf",
		Source:   "arxiv",
	}
}

func registerSyncActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "UpsertPaperActivity", func(context.Context, activities.UpsertPaperInput) error { return nil })
	registerActivityName(env, "EnrichMetricsActivity", func(context.Context, activities.EnrichMetricsInput) (activities.EnrichMetricsOutput, error) {
		return activities.EnrichMetricsOutput{}, nil
	})
	registerActivityName(env, "FetchPaperContentActivity", func(context.Context, activities.FetchPaperContentInput) (activities.FetchPaperContentOutput, error) {
		return activities.FetchPaperContentOutput{}, nil
	})
	registerActivityName(env, "ScorePaperActivity", func(context.Context, activities.ScorePaperInput) (activities.ScorePaperOutput, error) {
		return activities.ScorePaperOutput{}, nil
	})
	registerActivityName(env, "RuleScoreActivity", func(context.Context, activities.RuleScoreInput) (activities.RuleScoreOutput, error) {
		return activities.RuleScoreOutput{}, nil
	})
	registerActivityName(env, "UpdatePaperStatusActivity", func(context.Context, activities.UpdatePaperStatusInput) error { return nil })
	registerActivityName(env, "SyncPaperActivity", func(context.Context, activities.SyncPaperInput) (activities.SyncPaperOutput, error) {
		return activities.SyncPaperOutput{}, nil
	})
	registerActivityName(env, "AttachFigureActivity", func(context.Context, activities.AttachFigureInput) error { return nil })
	registerActivityName(env, "LogLLMCallActivity", func(context.Context, activities.LogLLMCallInput) error { return nil })
}

func TestPaperSyncWorkflowRuleScore(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperSyncWorkflow)
	registerSyncActivities(env)

	env.OnActivity("UpsertPaperActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RuleScoreActivity", mock.Anything, mock.Anything).Return(activities.RuleScoreOutput{Score: 42.5, Rationale: "rules"}, nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("SyncPaperActivity", mock.Anything, mock.MatchedBy(func(in activities.SyncPaperInput) bool {
		return in.Paper.RecommendScore != nil && *in.Paper.RecommendScore == 42.5
	})).Return(activities.SyncPaperOutput{PageID: "page-1"}, nil)

	env.ExecuteWorkflow(PaperSyncWorkflow, PaperSyncInput{RunID: "run-1", Paper: testPaper()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PaperSyncResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "synced", result.Status)
	require.Equal(t, "page-1", result.PageID)
	require.False(t, result.UsedLLM)
}

func TestPaperSyncWorkflowLLMReview(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperSyncWorkflow)
	registerSyncActivities(env)

	env.OnActivity("UpsertPaperActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ScorePaperActivity", mock.Anything, mock.Anything).Return(activities.ScorePaperOutput{Score: 88, Rationale: "strong benchmark results", ProviderName: "openai", Model: "gpt-4o-mini"}, nil)
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("SyncPaperActivity", mock.Anything, mock.MatchedBy(func(in activities.SyncPaperInput) bool {
		return in.Paper.RecommendScore != nil && *in.Paper.RecommendScore == 88 && in.Paper.RecommendRationale == "strong benchmark results"
	})).Return(activities.SyncPaperOutput{PageID: "page-2"}, nil)

	env.ExecuteWorkflow(PaperSyncWorkflow, PaperSyncInput{RunID: "run-1", Paper: testPaper(), LLMEnable: true, LLMProviders: 1})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PaperSyncResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "synced", result.Status)
	require.True(t, result.UsedLLM)
}

func TestPaperSyncWorkflowLLMFailureFallsBackToRules(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperSyncWorkflow)
	registerSyncActivities(env)

	env.OnActivity("UpsertPaperActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ScorePaperActivity", mock.Anything, mock.Anything).Return(activities.ScorePaperOutput{}, errors.New("invalid api key"))
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RuleScoreActivity", mock.Anything, mock.Anything).Return(activities.RuleScoreOutput{Score: 30.25, Rationale: "rules"}, nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("SyncPaperActivity", mock.Anything, mock.Anything).Return(activities.SyncPaperOutput{PageID: "page-3"}, nil)

	env.ExecuteWorkflow(PaperSyncWorkflow, PaperSyncInput{RunID: "run-1", Paper: testPaper(), LLMEnable: true, LLMProviders: 1})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PaperSyncResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "synced", result.Status)
	require.False(t, result.UsedLLM)
}

func TestPaperSyncWorkflowNotionFailureReturnsFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperSyncWorkflow)
	registerSyncActivities(env)

	env.OnActivity("UpsertPaperActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RuleScoreActivity", mock.Anything, mock.Anything).Return(activities.RuleScoreOutput{Score: 10, Rationale: "rules"}, nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("SyncPaperActivity", mock.Anything, mock.Anything).Return(activities.SyncPaperOutput{}, errors.New("notion api error (status 400)"))

	env.ExecuteWorkflow(PaperSyncWorkflow, PaperSyncInput{RunID: "run-1", Paper: testPaper()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PaperSyncResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "failed", result.Status)
}
