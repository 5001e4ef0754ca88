package ai

import (
	"bytes"
	"context"
	"strings"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/llm"
	"hotelpricing/internal/ocr"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const maxAnalyticsDocs = 30

type AnalyticsResponse struct {
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	AnswerHTML      string   `json:"answerHtml"`
	KeyPoints       []string `json:"keyPoints"`
	Recommendations []string `json:"recommendations"`
	Sources         []string `json:"sources"`
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Query answers a question over the summarised documents.
func (s *Service) Query(ctx context.Context, scope analysis.Scope, question string) (*AnalyticsResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apierror.New(apierror.ErrInvalidInput, "question is required")
	}

	list, err := s.completedOCR(ctx, scope)
	if err != nil {
		return nil, err
	}

	var docs []llm.Digest
	for i := range list {
		a := &list[i]
		if env, err := analysis.Normalize(a.Insights); err == nil {
			docs = append(docs, digest(a, env))
		} else if text := s.pre.Clean(a.Text()); text != "" {
			text = ocr.CutBytes(text, digestChars)
			docs = append(docs, llm.Digest{FileName: a.FileName, Summary: text})
		}
		if len(docs) == maxAnalyticsDocs {
			break
		}
	}
	if len(docs) == 0 {
		return nil, apierror.New(apierror.ErrInvalidInput, "no analysed documents available")
	}

	var answer llm.AnalyticsAnswer
	err = llm.CompleteJSON(ctx, s.llm, llm.Request{
		System: llm.SystemAnalyst,
		Prompt: llm.BuildAnalyticsPrompt(question, docs),
		Schema: llm.AnalyticsSchema,
	}, &answer)
	if err != nil {
		return nil, err
	}

	s.log.Info("analytics query answered", "documents", len(docs), "sources", len(answer.Sources))

	return &AnalyticsResponse{
		Question:        question,
		Answer:          answer.Answer,
		AnswerHTML:      RenderMarkdown(answer.Answer),
		KeyPoints:       nonNil(answer.KeyPoints),
		Recommendations: nonNil(answer.Recommendations),
		Sources:         nonNil(answer.Sources),
	}, nil
}

// RenderMarkdown converts model markdown to HTML. Raw HTML in the input is
// not passed through.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "<pre>" + htmlEscape(md) + "</pre>"
	}
	return buf.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string { return htmlEscaper.Replace(s) }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
