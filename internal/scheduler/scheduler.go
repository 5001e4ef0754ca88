// Package scheduler runs periodic maintenance: work stuck in processing is
// failed so that polling clients learn about it.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"hotelpricing/internal/logger"

	"github.com/robfig/cron/v3"
)

// StaleReason is stored on analyses and uploads failed by the reaper.
const StaleReason = "processing timed out"

// Reaper fails records stuck in processing since before the cutoff.
type Reaper interface {
	FailStale(ctx context.Context, before time.Time, reason string) (int64, error)
}

// Target names a reaper for logging.
type Target struct {
	Name   string
	Reaper Reaper
}

type Scheduler struct {
	cron       *cron.Cron
	targets    []Target
	staleAfter time.Duration
	now        func() time.Time
	log        *slog.Logger
}

func New(staleAfter time.Duration, targets ...Target) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		targets:    targets,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        logger.For("scheduler"),
	}
}

// Start registers the reaper on schedule (standard cron or "@every 5m").
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "@every 5m"
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("stale processing reaper started", "schedule", schedule, "staleAfter", s.staleAfter)
	return nil
}

// Stop waits for a running reap to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunOnce reaps every target and returns the number of records failed.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.staleAfter)

	var total int64
	for _, t := range s.targets {
		n, err := t.Reaper.FailStale(ctx, cutoff, StaleReason)
		if err != nil {
			s.log.Error("reap failed", "target", t.Name, "err", err)
			continue
		}
		if n > 0 {
			s.log.Warn("stale records failed", "target", t.Name, "count", n)
		}
		total += n
	}
	return total
}
