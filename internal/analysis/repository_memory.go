package analysis

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu       sync.Mutex
	analyses map[string]*Analysis
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		analyses: make(map[string]*Analysis),
		now:      time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.PriceData == nil {
		a.PriceData = []PricePoint{}
	}
	now := r.now()
	a.CreatedAt, a.UpdatedAt = now, now

	cp := *a
	r.analyses[a.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.analyses[id]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Analysis{}
	for _, a := range r.analyses {
		if f.matches(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.analyses[id]; !ok {
		return ErrAnalysisNotFound
	}
	delete(r.analyses, id)
	return nil
}

func (r *InMemoryRepository) DeleteByUpload(ctx context.Context, uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.analyses {
		if a.UploadID == uploadID {
			delete(r.analyses, id)
		}
	}
	return nil
}

func (r *InMemoryRepository) update(id string, fn func(a *Analysis)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.analyses[id]
	if !ok {
		return ErrAnalysisNotFound
	}
	fn(a)
	a.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) Requeue(ctx context.Context, id string) error {
	return r.update(id, func(a *Analysis) {
		a.Status = StatusPending
		a.ErrorMessage = nil
	})
}

func (r *InMemoryRepository) Complete(ctx context.Context, id, text string, prices []PricePoint, elapsed time.Duration) error {
	return r.update(id, func(a *Analysis) {
		a.Status = StatusCompleted
		a.ExtractedText = &text
		a.PriceData = append([]PricePoint{}, prices...)
		a.ProcessingTime = elapsed.Milliseconds()
		a.ErrorMessage = nil
	})
}

func (r *InMemoryRepository) Fail(ctx context.Context, id, reason string, elapsed time.Duration) error {
	return r.update(id, func(a *Analysis) {
		a.Status = StatusFailed
		a.ErrorMessage = &reason
		a.ProcessingTime = elapsed.Milliseconds()
	})
}

func (r *InMemoryRepository) UpdateInsights(ctx context.Context, id string, insights json.RawMessage) error {
	return r.update(id, func(a *Analysis) {
		a.Insights = append(json.RawMessage(nil), insights...)
	})
}

func (r *InMemoryRepository) ClaimPending(ctx context.Context) (*Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *Analysis
	for _, a := range r.analyses {
		if a.Status != StatusPending {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(oldest.CreatedAt) {
			oldest = a
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.Status = StatusProcessing
	oldest.UpdatedAt = r.now()
	cp := *oldest
	return &cp, nil
}

func (r *InMemoryRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, a := range r.analyses {
		if a.Status == StatusProcessing && a.UpdatedAt.Before(before) {
			msg := reason
			a.Status = StatusFailed
			a.ErrorMessage = &msg
			a.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

type InMemoryInsightRepository struct {
	mu       sync.Mutex
	insights map[string]*Insight
}

func NewInMemoryInsightRepository() *InMemoryInsightRepository {
	return &InMemoryInsightRepository{insights: make(map[string]*Insight)}
}

func (r *InMemoryInsightRepository) Create(ctx context.Context, in *Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	in.CreatedAt = time.Now()
	cp := *in
	r.insights[in.ID] = &cp
	return nil
}

func (r *InMemoryInsightRepository) Get(ctx context.Context, id string) (*Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.insights[id]
	if !ok {
		return nil, ErrInsightNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *InMemoryInsightRepository) List(ctx context.Context, uploadID string) ([]Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Insight{}
	for _, in := range r.insights {
		if uploadID != "" && (in.UploadID == nil || *in.UploadID != uploadID) {
			continue
		}
		out = append(out, *in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryInsightRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.insights[id]; !ok {
		return ErrInsightNotFound
	}
	delete(r.insights, id)
	return nil
}

func (r *InMemoryInsightRepository) DeleteByUpload(ctx context.Context, uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, in := range r.insights {
		if in.UploadID != nil && *in.UploadID == uploadID {
			delete(r.insights, id)
		}
	}
	return nil
}
