package calendar

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the bulk sync on a cron schedule.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	spec         string
}

// NewScheduler creates a scheduler for spec, a standard cron expression or
// descriptor such as "@every 1h". An empty spec disables scheduling.
func NewScheduler(orchestrator *Orchestrator, spec string) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		orchestrator: orchestrator,
		spec:         spec,
	}
}

// Start registers the bulk sync job and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		slog.Info("Bulk sync schedule disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.runBulkSync() }); err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("Bulk sync scheduler started", "schedule", s.spec)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Bulk sync scheduler stopped")
}

// runBulkSync runs one scheduled bulk sync and reports whether it ran.
func (s *Scheduler) runBulkSync() bool {
	_, err := s.orchestrator.SyncAll(context.Background())
	switch {
	case errors.Is(err, ErrSyncInProgress):
		slog.Info("Scheduled bulk sync skipped, another run is in progress")
		return false
	case err != nil:
		slog.Error("Scheduled bulk sync failed", "error", err)
		return false
	}
	return true
}
