package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Optimizer is the database work a maintenance run performs.
type Optimizer interface {
	Optimize(ctx context.Context) error
}

// runTimeout bounds a single scheduled run.
const runTimeout = 10 * time.Minute

// Scheduler runs database maintenance on a cron schedule.
type Scheduler struct {
	db          Optimizer
	cron        *cron.Cron
	cronEntryID cron.EntryID
	schedule    string
	mu          sync.RWMutex
	running     bool
	lastRun     time.Time
	lastErr     error
}

// Status describes the scheduler state.
type Status struct {
	Running  bool       `json:"running"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastErr  string     `json:"last_error,omitempty"`
}

// NewScheduler creates a scheduler. An empty schedule disables scheduled runs;
// RunOnce still works.
func NewScheduler(db Optimizer, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		db:       db,
		cron:     cron.New(),
		schedule: schedule,
	}

	if schedule != "" {
		id, err := s.cron.AddFunc(schedule, s.scheduledRun)
		if err != nil {
			return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
		}
		s.cronEntryID = id
	}

	return s, nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true

	log.Info().Str("schedule", s.schedule).Msg("Maintenance scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Info().Msg("Maintenance scheduler stopped")
}

// NextRun returns the next scheduled run, or the zero time when disabled or
// not started.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cronEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.cronEntryID).Next
}

// Status returns the current scheduler status
func (s *Scheduler) Status() Status {
	status := Status{Schedule: s.schedule}
	if next := s.NextRun(); !next.IsZero() {
		status.NextRun = &next
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	status.Running = s.running
	if !s.lastRun.IsZero() {
		lastRun := s.lastRun
		status.LastRun = &lastRun
	}
	if s.lastErr != nil {
		status.LastErr = s.lastErr.Error()
	}
	return status
}

// RunOnce performs one maintenance pass.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := s.db.Optimize(ctx)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		return err
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("Database maintenance completed")
	return nil
}

// scheduledRun is called by cron
func (s *Scheduler) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled database maintenance failed")
	}
}
