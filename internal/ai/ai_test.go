package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	currentEnvelope = `{"version":2,"kind":"document_summary","documentType":"rate sheet","summary":"Known"}`
	summaryReply    = "```json\n{\"documentType\":\"rate sheet\",\"summary\":\"Summer rates\",\"keyFindings\":[\"Double 120 EUR\"],\"businessInsights\":[\"Raise weekend rates\"]}\n```"
)

type fakeLLM struct {
	calls   int32
	summary error
}

func (f *fakeLLM) provider() llm.Provider {
	return llm.ProviderFunc(func(ctx context.Context, req llm.Request) (string, error) {
		atomic.AddInt32(&f.calls, 1)
		switch req.Schema {
		case llm.DocumentSummarySchema:
			if f.summary != nil {
				return "", f.summary
			}
			return summaryReply, nil
		case llm.ComprehensiveSchema:
			return `{"summary":"Overall picture","keyFindings":["a"],"businessInsights":["b"],"recommendations":["c"]}`, nil
		case llm.AnalyticsSchema:
			return `{"answer":"**Average** is 120 EUR","keyPoints":["120 EUR"],"sources":["rates.pdf"]}`, nil
		}
		return "", errors.New("unexpected request")
	})
}

func (f *fakeLLM) count() int { return int(atomic.LoadInt32(&f.calls)) }

func seed(t *testing.T, repo analysis.Repository, uploadID, name, status, insights string) *analysis.Analysis {
	t.Helper()
	text := name + ": Double room 120 EUR"
	a := &analysis.Analysis{
		UploadID:      uploadID,
		FileName:      name,
		AnalysisType:  analysis.TypeMistralOCR,
		Status:        status,
		ExtractedText: &text,
		PriceData:     []analysis.PricePoint{{Value: 120, Currency: "EUR"}},
	}
	if insights != "" {
		a.Insights = json.RawMessage(insights)
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func newTestService(f *fakeLLM) (*Service, *analysis.InMemoryRepository, *analysis.InMemoryInsightRepository) {
	repo := analysis.NewInMemoryRepository()
	insights := analysis.NewInMemoryInsightRepository()
	return NewService(repo, insights, f.provider(), nil), repo, insights
}

func outcomes(res *BatchResult) map[string]string {
	out := map[string]string{}
	for _, r := range res.Results {
		out[r.FileName] = r.Outcome
	}
	return out
}

func TestMassSummary_SkipsComplete(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)
	ctx := context.Background()

	seed(t, repo, "u1", "done.pdf", analysis.StatusCompleted, currentEnvelope)
	missing := seed(t, repo, "u1", "missing.pdf", analysis.StatusCompleted, "")
	seed(t, repo, "u1", "junk.pdf", analysis.StatusCompleted, `{"foo":1}`)
	seed(t, repo, "u1", "failed.pdf", analysis.StatusFailed, "")

	res, err := svc.MassSummary(ctx, analysis.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, f.count())
	assert.Equal(t, OutcomeSkipped, outcomes(res)["done.pdf"])

	got, err := repo.Get(ctx, missing.ID)
	require.NoError(t, err)
	assert.True(t, analysis.IsCurrent(got.Insights))
	assert.Equal(t, analysis.BadgeComplete, analysis.BadgeFor(got))

	env, err := analysis.Normalize(got.Insights)
	require.NoError(t, err)
	assert.Equal(t, "Summer rates", env.Summary)
	require.Len(t, env.PriceMentions, 1, "OCR prices fill in when the model lists none")
}

func TestMassSummary_RateLimitStopsBatch(t *testing.T) {
	f := &fakeLLM{summary: fmt.Errorf("openai: %w", apierror.ErrRateLimited)}
	svc, repo, _ := newTestService(f)

	seed(t, repo, "u1", "a.pdf", analysis.StatusCompleted, "")
	seed(t, repo, "u1", "b.pdf", analysis.StatusCompleted, "")

	res, err := svc.MassSummary(context.Background(), analysis.Scope{})
	assert.ErrorIs(t, err, apierror.ErrRateLimited)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, f.count())
}

func TestMassSummary_NoTextFails(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)

	empty := ""
	require.NoError(t, repo.Create(context.Background(), &analysis.Analysis{
		UploadID: "u1", FileName: "blank.png", AnalysisType: analysis.TypeMistralOCR,
		Status: analysis.StatusCompleted, ExtractedText: &empty,
	}))

	res, err := svc.MassSummary(context.Background(), analysis.SingleUpload("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, f.count())
}

func TestFreshAnalysis_ResummarisesScope(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)

	a := seed(t, repo, "u1", "done.pdf", analysis.StatusCompleted, currentEnvelope)
	seed(t, repo, "u1", "other.pdf", analysis.StatusCompleted, "")
	seed(t, repo, "u2", "elsewhere.pdf", analysis.StatusCompleted, "")

	res, err := svc.FreshAnalysis(context.Background(), analysis.SingleUpload("u1"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, f.count())

	got, err := repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	env, err := analysis.Normalize(got.Insights)
	require.NoError(t, err)
	assert.Equal(t, "Summer rates", env.Summary)
}

func TestRestore_NormalisesLocallyFirst(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)

	seed(t, repo, "u1", "current.pdf", analysis.StatusCompleted, currentEnvelope)
	legacy := seed(t, repo, "u1", "legacy.pdf", analysis.StatusCompleted, `{"summary":"{\"keyFindings\":[\"Weekend +15%\"]}"}`)
	seed(t, repo, "u1", "broken.pdf", analysis.StatusCompleted, `"not json at all"`)
	seed(t, repo, "u1", "empty.pdf", analysis.StatusCompleted, "")

	res, err := svc.Restore(context.Background(), analysis.SingleUpload("u1"))
	require.NoError(t, err)

	o := outcomes(res)
	assert.Equal(t, OutcomeSkipped, o["current.pdf"])
	assert.Equal(t, OutcomeRestored, o["legacy.pdf"])
	assert.Equal(t, OutcomeSummarized, o["broken.pdf"])
	assert.Equal(t, OutcomeSummarized, o["empty.pdf"])
	assert.Equal(t, 1, res.Restored)
	assert.Equal(t, 2, f.count())

	got, err := repo.Get(context.Background(), legacy.ID)
	require.NoError(t, err)
	assert.True(t, analysis.IsCurrent(got.Insights))
	env, _ := analysis.Normalize(got.Insights)
	assert.Equal(t, []string{"Weekend +15%"}, env.KeyFindings)
}

func TestJobManager_Comprehensive(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, insights := newTestService(f)
	ctx := context.Background()

	seed(t, repo, "u1", "done.pdf", analysis.StatusCompleted, currentEnvelope)
	seed(t, repo, "u1", "fresh.pdf", analysis.StatusCompleted, "")
	seed(t, repo, "u2", "other.pdf", analysis.StatusCompleted, "")

	m := NewJobManager(svc)
	job, err := m.Start(ctx, analysis.SingleUpload("u1"))
	require.NoError(t, err)
	assert.Len(t, job.Documents, 2)
	m.Wait()

	got, err := m.Get(job.ID, analysis.Scope{})
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)
	assert.Equal(t, float64(100), got.Progress)
	for _, d := range got.Documents {
		assert.Equal(t, JobCompleted, d.Status, d.FileName)
	}
	require.NotEmpty(t, got.InsightID)
	require.NotNil(t, got.CompletedAt)

	// one summary for fresh.pdf plus the combining call
	assert.Equal(t, 2, f.count())

	list, err := insights.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, analysis.InsightComprehensive, list[0].InsightType)
	assert.Equal(t, "Overall picture", list[0].Description)

	var viz struct {
		TotalSamples int `json:"totalSamples"`
	}
	require.NoError(t, json.Unmarshal(list[0].VisualizationData, &viz))
	assert.Equal(t, 2, viz.TotalSamples)
}

func TestJobManager_PartialFailures(t *testing.T) {
	f := &fakeLLM{summary: fmt.Errorf("%w: boom", apierror.ErrUpstream)}
	svc, repo, _ := newTestService(f)

	ok := seed(t, repo, "", "done.pdf", analysis.StatusCompleted, currentEnvelope)
	bad := seed(t, repo, "", "fresh.pdf", analysis.StatusCompleted, "")

	m := NewJobManager(svc)
	job, err := m.Start(context.Background(), analysis.Scope{})
	require.NoError(t, err)
	m.Wait()

	got, err := m.Get(job.ID, analysis.Scope{})
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)

	status := map[string]DocumentProgress{}
	for _, d := range got.Documents {
		status[d.AnalysisID] = d
	}
	assert.Equal(t, JobCompleted, status[ok.ID].Status)
	assert.Equal(t, JobFailed, status[bad.ID].Status)
	assert.Contains(t, status[bad.ID].Error, "boom")
}

func TestJobManager_Errors(t *testing.T) {
	svc, _, _ := newTestService(&fakeLLM{})
	m := NewJobManager(svc)

	_, err := m.Start(context.Background(), analysis.Scope{})
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)

	_, err = m.Get("nope", analysis.Scope{})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(0, 0))
	assert.Equal(t, 33.3, percent(1, 3))
	assert.Equal(t, 100.0, percent(4, 4))
}

func TestQuery(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)

	seed(t, repo, "u1", "rates.pdf", analysis.StatusCompleted, currentEnvelope)
	seed(t, repo, "u1", "raw.pdf", analysis.StatusCompleted, "")

	resp, err := svc.Query(context.Background(), analysis.Scope{}, "  What is the average rate? ")
	require.NoError(t, err)
	assert.Equal(t, "What is the average rate?", resp.Question)
	assert.Contains(t, resp.AnswerHTML, "<strong>Average</strong>")
	assert.Equal(t, []string{"120 EUR"}, resp.KeyPoints)
	assert.Equal(t, []string{}, resp.Recommendations)
	assert.Equal(t, []string{"rates.pdf"}, resp.Sources)
}

func TestQuery_Rejects(t *testing.T) {
	svc, _, _ := newTestService(&fakeLLM{})

	_, err := svc.Query(context.Background(), analysis.Scope{}, " ")
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)

	_, err = svc.Query(context.Background(), analysis.Scope{}, "anything?")
	assert.ErrorIs(t, err, apierror.ErrInvalidInput)
}

func TestRenderMarkdown(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown("  "))

	out := RenderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}

func TestJobManager_StoresOwnerOnReport(t *testing.T) {
	svc, repo, insights := newTestService(&fakeLLM{})
	ctx := context.Background()

	seed(t, repo, "u1", "a.pdf", analysis.StatusCompleted, currentEnvelope)
	seed(t, repo, "u2", "b.pdf", analysis.StatusCompleted, currentEnvelope)

	m := NewJobManager(svc)
	job, err := m.Start(ctx, analysis.OwnedBy("alice", "u1"))
	require.NoError(t, err)
	assert.Len(t, job.Documents, 1)
	m.Wait()

	_, err = m.Get(job.ID, analysis.OwnedBy("bob"))
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	got, err := m.Get(job.ID, analysis.OwnedBy("alice"))
	require.NoError(t, err)
	require.NotEmpty(t, got.InsightID)

	list, err := insights.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].UserID)
	assert.Equal(t, "alice", *list[0].UserID)
	assert.Nil(t, list[0].UploadID)
}
