package usecase

import (
	"context"
	"time"

	"newspaperscraper/internal/ports"
)

// Scheduler runs the pipeline on a recurring schedule: each trigger indexes
// the previous day, scrapes public articles and processes new text. The
// premium stage stays manual since it needs credentials and a browser.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline}
}

// Start registers the daily job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		yesterday := trigger.AddDate(0, 0, -1)
		if _, err := s.pipeline.IndexDateRange(ctx, yesterday, yesterday, true); err != nil {
			return
		}
		if _, err := s.pipeline.ScrapePublic(ctx); err != nil {
			return
		}
		_, _ = s.pipeline.Process(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
