package analysis

import (
	"context"
	"encoding/json"
	"time"

	"hotelpricing/internal/apierror"
)

var (
	ErrAnalysisNotFound = apierror.New(apierror.ErrNotFound, "analysis not found")
	ErrInsightNotFound  = apierror.New(apierror.ErrNotFound, "insight not found")
)

// Repository stores document analyses.
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id string) (*Analysis, error)
	List(ctx context.Context, f Filter) ([]Analysis, error)
	Delete(ctx context.Context, id string) error
	DeleteByUpload(ctx context.Context, uploadID string) error

	// Requeue hands an analysis back to the queue for a later attempt.
	Requeue(ctx context.Context, id string) error
	Complete(ctx context.Context, id, text string, prices []PricePoint, elapsed time.Duration) error
	Fail(ctx context.Context, id, reason string, elapsed time.Duration) error
	UpdateInsights(ctx context.Context, id string, insights json.RawMessage) error

	// ClaimPending atomically moves the oldest pending analysis to
	// processing and returns it. Returns (nil, nil) when nothing is queued.
	ClaimPending(ctx context.Context) (*Analysis, error)

	// FailStale fails every processing analysis not touched since before.
	FailStale(ctx context.Context, before time.Time, reason string) (int64, error)
}

// InsightRepository stores document-level and cross-document insights.
type InsightRepository interface {
	Create(ctx context.Context, in *Insight) error
	Get(ctx context.Context, id string) (*Insight, error)
	List(ctx context.Context, uploadID string) ([]Insight, error)
	Delete(ctx context.Context, id string) error
	DeleteByUpload(ctx context.Context, uploadID string) error
}
