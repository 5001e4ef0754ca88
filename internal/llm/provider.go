// Package llm wraps the language-model providers used for document
// summaries, comprehensive analyses and analytics questions.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/config"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/time/rate"
)

// Request is one completion call. Schema, when set, asks providers that
// support it for structured JSON output.
type Request struct {
	System    string
	Prompt    string
	Schema    *Schema
	MaxTokens int
}

type Schema struct {
	Name       string
	Definition jsonschema.Definition
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Name() string { return "func" }

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

const defaultMaxTokens = 4096

// New builds the provider selected by llm.provider, rate limited and
// bounded by llm.timeout.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	m := cfg.ActiveModel()
	if m.APIKey == "" {
		return nil, fmt.Errorf("missing API key for llm provider %q", cfg.LLM.Provider)
	}

	var (
		p   Provider
		err error
	)
	switch cfg.LLM.Provider {
	case "openai":
		p = NewOpenAIClient(m.APIKey, m.BaseURL, m.Model)
	case "gemini":
		p, err = NewGeminiClient(ctx, m.APIKey, m.BaseURL, m.Model)
	case "claude":
		p = NewClaudeClient(m.APIKey, m.BaseURL, m.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithLimits(p, cfg.LLM.RequestsPerSecond, cfg.LLM.Timeout), nil
}

type limited struct {
	next    Provider
	limiter *rate.Limiter
	timeout time.Duration
}

// WithLimits throttles calls to rps and cancels each one after timeout.
func WithLimits(p Provider, rps float64, timeout time.Duration) Provider {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &limited{
		next:    p,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: timeout,
	}
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Complete(ctx, req)
}

// classify wraps provider errors so callers can map them to HTTP statuses.
func classify(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if status == 429 || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "rate limit") {
		return fmt.Errorf("%s: %w: %v", provider, apierror.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, apierror.ErrUpstream, err)
}
