package approvals

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu       sync.Mutex
	requests map[string]*Request
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{requests: make(map[string]*Request)}
}

func cloneRequest(r *Request) Request {
	cp := *r
	cp.Reasons = append([]string{}, r.Reasons...)
	return cp
}

func (m *InMemoryRepository) Create(ctx context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Status = StatusPending
	if r.Reasons == nil {
		r.Reasons = []string{}
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now

	cp := cloneRequest(r)
	m.requests[r.ID] = &cp
	return nil
}

func (m *InMemoryRepository) Get(ctx context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := cloneRequest(r)
	return &cp, nil
}

func (m *InMemoryRepository) List(ctx context.Context, f Filter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Request{}
	for _, r := range m.requests {
		if f.CreatedBy != "" && r.CreatedByUserID != f.CreatedBy {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, cloneRequest(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *InMemoryRepository) Stats(ctx context.Context, createdBy string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	for _, r := range m.requests {
		if createdBy != "" && r.CreatedByUserID != createdBy {
			continue
		}
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		}
		s.Total++
	}
	return s, nil
}

func (m *InMemoryRepository) Decide(ctx context.Context, id, status, adminID string, comment *string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return nil, ErrNotPending
	}

	r.Status = status
	r.ApprovedByUserID = &adminID
	r.AdminComment = comment
	r.UpdatedAt = time.Now()

	cp := cloneRequest(r)
	return &cp, nil
}

func (m *InMemoryRepository) DeletePending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return ErrNotPending
	}
	delete(m.requests, id)
	return nil
}
