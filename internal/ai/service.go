// Package ai runs the language-model passes over OCR results: per-document
// summaries, cross-document analyses and free-form analytics questions.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/llm"
	"hotelpricing/internal/logger"
	"hotelpricing/internal/ocr"
)

// Item outcomes reported per analysis.
const (
	OutcomeSummarized = "summarized"
	OutcomeRestored   = "restored"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

var ErrNoText = errors.New("analysis has no extracted text")

type ItemResult struct {
	AnalysisID string `json:"analysisId"`
	FileName   string `json:"fileName"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

// BatchResult is returned by every summary endpoint.
type BatchResult struct {
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Restored  int          `json:"restored"`
	Results   []ItemResult `json:"results"`
}

func (r *BatchResult) add(a *analysis.Analysis, outcome string, err error) {
	item := ItemResult{AnalysisID: a.ID, FileName: a.FileName, Outcome: outcome}
	switch outcome {
	case OutcomeSummarized:
		r.Processed++
	case OutcomeRestored:
		r.Processed++
		r.Restored++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
		if err != nil {
			item.Error = err.Error()
		}
	}
	r.Results = append(r.Results, item)
}

type Service struct {
	analyses analysis.Repository
	insights analysis.InsightRepository
	llm      llm.Provider
	pre      *ocr.Preprocessor
	log      *slog.Logger
}

func NewService(
	analyses analysis.Repository,
	insights analysis.InsightRepository,
	provider llm.Provider,
	pre *ocr.Preprocessor,
) *Service {
	if pre == nil {
		pre = ocr.NewPreprocessor(0)
	}
	return &Service{
		analyses: analyses,
		insights: insights,
		llm:      provider,
		pre:      pre,
		log:      logger.For("ai"),
	}
}

// completedOCR lists the completed OCR analyses inside scope.
func (s *Service) completedOCR(ctx context.Context, scope analysis.Scope) ([]analysis.Analysis, error) {
	all, err := s.analyses.List(ctx, analysis.Filter{
		UploadID: scope.UploadID(),
		Status:   analysis.StatusCompleted,
		Scope:    scope,
	})
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, a := range all {
		if analysis.IsOCRAnalysis(a.AnalysisType) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Summarize asks the model for a document summary of a and stores it as
// a versioned envelope.
func (s *Service) Summarize(ctx context.Context, a *analysis.Analysis) (*analysis.Envelope, error) {
	text := s.pre.Clean(a.Text())
	if text == "" {
		return nil, ErrNoText
	}

	name := a.FileName
	if a.WorksheetName != nil {
		name += " / " + *a.WorksheetName
	}

	raw, err := s.llm.Complete(ctx, llm.Request{
		System: llm.SystemAnalyst,
		Prompt: llm.BuildDocumentSummaryPrompt(name, text),
		Schema: llm.DocumentSummarySchema,
	})
	if err != nil {
		return nil, err
	}

	env, err := analysis.NormalizeModelOutput(raw)
	if err != nil {
		if errors.Is(err, analysis.ErrNoInsights) || errors.Is(err, apierror.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %s returned an unusable summary", apierror.ErrUpstream, s.llm.Name())
		}
		return nil, err
	}
	if len(env.PriceMentions) == 0 {
		env.PriceMentions = a.PriceData
	}

	encoded, err := env.Encode()
	if err != nil {
		return nil, err
	}
	if err := s.analyses.UpdateInsights(ctx, a.ID, encoded); err != nil {
		return nil, err
	}
	return env, nil
}

// run applies fn to every analysis in list. A rate limit ends the batch and
// is returned alongside the partial result.
func (s *Service) run(ctx context.Context, op string, list []analysis.Analysis, fn func(a *analysis.Analysis) (string, error)) (*BatchResult, error) {
	res := &BatchResult{Results: []ItemResult{}}

	for i := range list {
		a := &list[i]
		outcome, err := fn(a)
		if err != nil {
			s.log.Warn("summary failed", "op", op, "analysis", a.ID, "file", a.FileName, "err", err)
			res.add(a, OutcomeFailed, err)
			if errors.Is(err, apierror.ErrRateLimited) || ctx.Err() != nil {
				return res, err
			}
			continue
		}
		res.add(a, outcome, nil)
	}

	s.log.Info("summary batch finished",
		"op", op,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// MassSummary summarises every completed OCR analysis whose insights are
// not complete yet.
func (s *Service) MassSummary(ctx context.Context, scope analysis.Scope) (*BatchResult, error) {
	list, err := s.completedOCR(ctx, scope)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, "mass-summary", list, func(a *analysis.Analysis) (string, error) {
		if analysis.BadgeFor(a) == analysis.BadgeComplete {
			return OutcomeSkipped, nil
		}
		if _, err := s.Summarize(ctx, a); err != nil {
			return "", err
		}
		return OutcomeSummarized, nil
	})
}

// FreshAnalysis discards existing insights and summarises again.
func (s *Service) FreshAnalysis(ctx context.Context, scope analysis.Scope) (*BatchResult, error) {
	list, err := s.completedOCR(ctx, scope)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, "fresh-analysis", list, func(a *analysis.Analysis) (string, error) {
		if err := s.analyses.UpdateInsights(ctx, a.ID, nil); err != nil {
			return "", err
		}
		if _, err := s.Summarize(ctx, a); err != nil {
			return "", err
		}
		return OutcomeSummarized, nil
	})
}

// Restore rewrites legacy insight shapes into the current envelope. Only
// analyses whose insights cannot be read are sent to the model again.
func (s *Service) Restore(ctx context.Context, scope analysis.Scope) (*BatchResult, error) {
	list, err := s.completedOCR(ctx, scope)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, "intelligent-restoration", list, func(a *analysis.Analysis) (string, error) {
		if analysis.IsCurrent(a.Insights) {
			return OutcomeSkipped, nil
		}

		if env, err := analysis.Normalize(a.Insights); err == nil {
			encoded, err := env.Encode()
			if err != nil {
				return "", err
			}
			if err := s.analyses.UpdateInsights(ctx, a.ID, encoded); err != nil {
				return "", err
			}
			return OutcomeRestored, nil
		}

		if _, err := s.Summarize(ctx, a); err != nil {
			return "", err
		}
		return OutcomeSummarized, nil
	})
}
