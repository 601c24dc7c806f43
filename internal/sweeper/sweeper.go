// Package sweeper schedules the background maintenance passes (cache
// expiry, idle conversation cleanup) on fixed intervals, so the stores
// stay bounded even without traffic.
package sweeper

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs registered maintenance jobs on cron-managed intervals.
type Sweeper struct {
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// New constructs an idle sweeper; register jobs with Add, then Start.
func New(logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		logger: logger,
	}
}

// Add registers a named job to run every interval. The job's return
// value is the number of items it removed, logged for observability.
func (s *Sweeper) Add(name string, interval time.Duration, job func() int) error {
	spec := fmt.Sprintf("@every %s", interval)
	_, err := s.cron.AddFunc(spec, func() {
		removed := job()
		if removed > 0 {
			s.logger.Debug("sweep pass complete", "job", name, "removed", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s sweep: %w", name, err)
	}

	s.logger.Info("registered sweep job", "job", name, "interval", interval.String())
	return nil
}

// Start begins running the registered jobs.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.cron.Start()
		s.running = true
	}
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("sweeper stopped")
	}
}
