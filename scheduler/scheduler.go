// Package scheduler runs the nightly compliance sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sitesafe/safemap/reports"
)

// Warmer recomputes and caches the compliance report.
type Warmer interface {
	Warm(ctx context.Context) (reports.Report, error)
}

// Scheduler owns the cron runner. Jobs run in loc so "00:05" means local midnight for the crews.
type Scheduler struct {
	cron    *cron.Cron
	warmer  Warmer
	logger  *zap.Logger
	timeout time.Duration
}

// New registers the compliance sweep under schedule, a standard five-field cron expression.
func New(schedule string, loc *time.Location, warmer Warmer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		warmer:  warmer,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid compliance cron %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce warms the report and logs the outcome. A failed sweep waits for the next tick.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.warmer.Warm(ctx)
	if err != nil {
		s.logger.Error("compliance sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("compliance sweep finished",
		zap.String("date", report.Date.String()),
		zap.Int("sites", report.Total),
		zap.Int("compliant", report.Compliant),
		zap.Duration("took", time.Since(start)),
	)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the sweep fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
