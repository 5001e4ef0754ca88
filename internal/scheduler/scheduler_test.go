package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/documents"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reaperFunc func(ctx context.Context, before time.Time, reason string) (int64, error)

func (f reaperFunc) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	return f(ctx, before, reason)
}

func TestRunOnce_CutoffAndReason(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	var gotBefore time.Time
	var gotReason string
	s := New(15*time.Minute,
		Target{Name: "analyses", Reaper: reaperFunc(func(ctx context.Context, before time.Time, reason string) (int64, error) {
			gotBefore, gotReason = before, reason
			return 2, nil
		})},
		Target{Name: "broken", Reaper: reaperFunc(func(ctx context.Context, before time.Time, reason string) (int64, error) {
			return 0, errors.New("db down")
		})},
		Target{Name: "uploads", Reaper: reaperFunc(func(ctx context.Context, before time.Time, reason string) (int64, error) {
			return 1, nil
		})},
	)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(3), s.RunOnce(context.Background()))
	assert.Equal(t, now.Add(-15*time.Minute), gotBefore)
	assert.Equal(t, StaleReason, gotReason)
}

func TestRunOnce_RealRepositories(t *testing.T) {
	ctx := context.Background()
	analyses := analysis.NewInMemoryRepository()
	uploads := documents.NewInMemoryRepository()

	a := &analysis.Analysis{UploadID: "u1", FileName: "a.pdf", AnalysisType: analysis.TypeMistralOCR, Status: analysis.StatusProcessing}
	require.NoError(t, analyses.Create(ctx, a))

	u := &documents.Upload{UserID: "user-1", FileName: "a.zip"}
	require.NoError(t, uploads.Create(ctx, u))
	require.NoError(t, uploads.MarkProcessing(ctx, u.ID))

	s := New(time.Minute, Target{"analyses", analyses}, Target{"uploads", uploads})

	// nothing is older than a minute yet
	assert.Equal(t, int64(0), s.RunOnce(ctx))

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, int64(2), s.RunOnce(ctx))

	got, err := analyses.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	assert.Equal(t, StaleReason, *got.ErrorMessage)

	gotU, err := uploads.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusFailed, gotU.UploadStatus)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := New(time.Minute)
	assert.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
}
