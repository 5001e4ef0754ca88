package approvals

import (
	"context"

	"hotelpricing/internal/apierror"
)

var (
	ErrRequestNotFound = apierror.New(apierror.ErrNotFound, "approval request not found")
	ErrNotPending      = apierror.New(apierror.ErrConflict, "approval request is no longer pending")
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, f Filter) ([]Request, error)
	Stats(ctx context.Context, createdBy string) (Stats, error)

	// Decide moves a pending request to status. Returns ErrNotPending when
	// it was already decided.
	Decide(ctx context.Context, id, status, adminID string, comment *string) (*Request, error)

	// DeletePending removes a request only while it is pending.
	DeletePending(ctx context.Context, id string) error
}
