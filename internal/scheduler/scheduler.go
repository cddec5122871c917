// Package scheduler runs periodic maintenance jobs for the server
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionPruner removes stale ids from the per-user session indexes
type SessionPruner interface {
	// PruneIndexes drops ids of expired sessions from every per-user index.
	// It returns the number of stale ids removed.
	PruneIndexes(ctx context.Context) (int, error)
}

// jobTimeout bounds a single pruning run
const jobTimeout = time.Minute

// Scheduler runs session index pruning on a cron schedule
type Scheduler struct {
	pruner   SessionPruner
	schedule cron.Schedule
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a new scheduler instance.
// spec is a standard five-field cron expression, e.g. "*/15 * * * *".
func NewScheduler(pruner SessionPruner, spec string, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start starts the scheduler.
// Only the first call starts the loop; Start after Stop does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.logger.Info("Scheduler started")
	go s.run()
}

// Stop stops the scheduler and waits for a running job to finish.
// Stop may be called more than once and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stopChan)
	if started {
		<-s.done
	}
	s.logger.Info("Scheduler stopped")
}

// NextRun returns the first run time strictly after t
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// run executes the scheduler loop
func (s *Scheduler) run() {
	defer close(s.done)

	for {
		next := s.schedule.Next(s.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.RunOnce(context.Background())
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

// RunOnce prunes the session indexes once and logs the outcome
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	pruned, err := s.pruner.PruneIndexes(ctx)
	if err != nil {
		s.logger.Error("Failed to prune session indexes", zap.Error(err), zap.Int("pruned", pruned))
		return pruned
	}

	if pruned > 0 {
		s.logger.Info("Pruned session indexes", zap.Int("pruned", pruned))
	} else {
		s.logger.Debug("No stale session ids to prune")
	}
	return pruned
}
