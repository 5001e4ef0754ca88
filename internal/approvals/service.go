package approvals

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/logger"
)

var ErrCommentRequired = apierror.New(apierror.ErrInvalidInput, "adminComment is required when rejecting")

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Admin  bool
}

type CreateInput struct {
	StarCategory        int             `json:"starCategory" binding:"min=1,max=5"`
	InputSnapshot       json.RawMessage `json:"inputSnapshot" binding:"required"`
	CalculationSnapshot json.RawMessage `json:"calculationSnapshot" binding:"required"`
	Reasons             []string        `json:"reasons"`
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logger.For("approvals")}
}

func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*Request, error) {
	if !isObject(in.InputSnapshot) || !isObject(in.CalculationSnapshot) {
		return nil, apierror.New(apierror.ErrInvalidInput, "snapshots must be JSON objects")
	}

	reasons := []string{}
	for _, r := range in.Reasons {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}

	req := &Request{
		CreatedByUserID:     actor.UserID,
		StarCategory:        in.StarCategory,
		InputSnapshot:       in.InputSnapshot,
		CalculationSnapshot: in.CalculationSnapshot,
		Reasons:             reasons,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("approval requested", "id", req.ID, "user", actor.UserID, "stars", req.StarCategory)
	return req, nil
}

// List returns the caller's own requests, or every request for admins.
func (s *Service) List(ctx context.Context, actor Actor, status string) ([]Request, error) {
	f := Filter{Status: status}
	if !actor.Admin {
		f.CreatedBy = actor.UserID
	}
	return s.repo.List(ctx, f)
}

// Get hides other users' requests from non-admins.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Request, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && r.CreatedByUserID != actor.UserID {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

func (s *Service) Stats(ctx context.Context, actor Actor) (Stats, error) {
	if actor.Admin {
		return s.repo.Stats(ctx, "")
	}
	return s.repo.Stats(ctx, actor.UserID)
}

func (s *Service) Approve(ctx context.Context, actor Actor, id, comment string) (*Request, error) {
	return s.decide(ctx, actor, id, StatusApproved, comment)
}

func (s *Service) Reject(ctx context.Context, actor Actor, id, comment string) (*Request, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}
	return s.decide(ctx, actor, id, StatusRejected, comment)
}

func (s *Service) decide(ctx context.Context, actor Actor, id, status, comment string) (*Request, error) {
	if !actor.Admin {
		return nil, apierror.New(apierror.ErrForbidden, "admin role required")
	}

	var c *string
	if comment = strings.TrimSpace(comment); comment != "" {
		c = &comment
	}

	r, err := s.repo.Decide(ctx, id, status, actor.UserID, c)
	if err != nil {
		return nil, err
	}
	s.log.Info("approval decided", "id", id, "status", status, "admin", actor.UserID)
	return r, nil
}

// Delete lets the creator withdraw a request while it is still pending.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.CreatedByUserID != actor.UserID {
		if actor.Admin {
			return apierror.New(apierror.ErrForbidden, "only the creator can withdraw a request")
		}
		return ErrRequestNotFound
	}
	return s.repo.DeletePending(ctx, id)
}

func isObject(raw json.RawMessage) bool {
	var m map[string]any
	return len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &m) == nil && m != nil
}
