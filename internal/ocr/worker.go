package ocr

import (
	"context"
	"errors"
	"time"

	"hotelpricing/internal/apierror"
)

// rateLimitPause is how long the worker backs off after an upstream 429.
const rateLimitPause = time.Minute

// RunWorker drains the pending queue on every tick until ctx is done.
func (s *Service) RunWorker(ctx context.Context, interval time.Duration) {
	s.log.Info("OCR worker started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("OCR worker stopped")
			return
		case <-ticker.C:
			if !s.drain(ctx) {
				continue
			}
			s.log.Warn("OCR rate limited, pausing worker", "pause", rateLimitPause)
			select {
			case <-ctx.Done():
			case <-time.After(rateLimitPause):
			}
		}
	}
}

// drain runs queued analyses until the queue is empty. It reports whether
// it stopped on a rate limit; the limited analysis is back in the queue.
func (s *Service) drain(ctx context.Context) bool {
	for ctx.Err() == nil {
		claimed, err := s.ProcessNext(ctx)
		if errors.Is(err, apierror.ErrRateLimited) {
			return true
		}
		if err != nil {
			s.log.Error("claim failed", "err", err)
			return false
		}
		if !claimed {
			return false
		}
	}
	return false
}

// StartWorker runs the worker loop in a goroutine.
func StartWorker(ctx context.Context, s *Service, interval time.Duration) {
	go s.RunWorker(ctx, interval)
}
