// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes stored documents older than a cutoff.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler runs the upload retention job.
type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler that, on schedule, removes stored uploads
// older than retention.
func NewScheduler(pruner Pruner, retention time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &Scheduler{
		cron:      c,
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins scheduled jobs. A non-positive retention keeps uploads forever
// and schedules nothing.
func (s *Scheduler) Start() error {
	if s.retention > 0 {
		if _, err := s.cron.AddFunc(s.schedule, s.pruneUploads); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the retention job synchronously.
func (s *Scheduler) RunNow() {
	s.pruneUploads()
}

func (s *Scheduler) pruneUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	s.logger.Info("starting upload retention", slog.Time("cutoff", cutoff))

	removed, err := s.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("upload retention failed",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("upload retention completed", slog.Int("removed", removed))
}
