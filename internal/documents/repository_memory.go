package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu      sync.Mutex
	uploads map[string]*Upload
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		uploads: make(map[string]*Upload),
		now:     time.Now,
	}
}

func clone(u *Upload) *Upload {
	cp := *u
	cp.ExtractedFiles = append([]ExtractedFile{}, u.ExtractedFiles...)
	return &cp
}

func (r *InMemoryRepository) Create(ctx context.Context, u *Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.UploadStatus == "" {
		u.UploadStatus = StatusPending
	}
	if u.ExtractedFiles == nil {
		u.ExtractedFiles = []ExtractedFile{}
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now

	r.uploads[u.ID] = clone(u)
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return clone(u), nil
}

func (r *InMemoryRepository) List(ctx context.Context, userID string) ([]Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Upload{}
	for _, u := range r.uploads {
		if userID == "" || u.UserID == userID {
			out = append(out, *clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) update(id string, fn func(u *Upload) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return ErrUploadNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.update(id, func(u *Upload) error {
		u.UploadStatus = StatusProcessing
		u.ErrorMessage = nil
		return nil
	})
}

func (r *InMemoryRepository) MarkCompleted(ctx context.Context, id string, files []ExtractedFile) error {
	return r.update(id, func(u *Upload) error {
		u.UploadStatus = StatusCompleted
		u.ExtractedFiles = append([]ExtractedFile{}, files...)
		u.ErrorMessage = nil
		return nil
	})
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.update(id, func(u *Upload) error {
		u.UploadStatus = StatusFailed
		u.ErrorMessage = &reason
		return nil
	})
}

func (r *InMemoryRepository) RetryFailed(ctx context.Context, id string) error {
	return r.update(id, func(u *Upload) error {
		if u.UploadStatus != StatusFailed {
			return ErrNotRetryable
		}
		u.UploadStatus = StatusPending
		u.ErrorMessage = nil
		u.ExtractedFiles = []ExtractedFile{}
		return nil
	})
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.uploads[id]; !ok {
		return ErrUploadNotFound
	}
	delete(r.uploads, id)
	return nil
}

func (r *InMemoryRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, u := range r.uploads {
		if u.UploadStatus == StatusProcessing && u.UpdatedAt.Before(before) {
			msg := reason
			u.UploadStatus = StatusFailed
			u.ErrorMessage = &msg
			u.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}
