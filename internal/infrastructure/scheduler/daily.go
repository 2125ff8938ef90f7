package scheduler

import (
	"context"
	"time"

	"newspaperscraper/internal/ports"
)

// DailyScheduler triggers a job on a fixed interval using time.Ticker. The
// first run fires immediately on Start.
type DailyScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler; interval defaults to 24h.
func NewDailyScheduler(interval time.Duration) *DailyScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DailyScheduler{interval: interval}
}

// Start begins ticking until Stop is called or the context ends.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if d.stop != nil {
		return nil
	}

	d.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}
