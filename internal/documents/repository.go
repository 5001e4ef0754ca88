package documents

import (
	"context"
	"time"

	"hotelpricing/internal/apierror"
)

var (
	ErrUploadNotFound = apierror.New(apierror.ErrNotFound, "upload not found")
	ErrNotRetryable   = apierror.New(apierror.ErrConflict, "upload not in failed state")
)

// Repository defines all database operations for document uploads
type Repository interface {
	Create(ctx context.Context, u *Upload) error
	Get(ctx context.Context, id string) (*Upload, error)

	// List returns uploads newest first; an empty userID lists everyone's.
	List(ctx context.Context, userID string) ([]Upload, error)

	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, files []ExtractedFile) error
	MarkFailed(ctx context.Context, id string, reason string) error

	// RetryFailed resets a failed upload to pending.
	RetryFailed(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error

	// FailStale fails every processing upload not touched since before.
	FailStale(ctx context.Context, before time.Time, reason string) (int64, error)
}
