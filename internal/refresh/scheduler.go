// Package refresh periodically re-invokes a fetch while running and
// re-invokes immediately when parameters change, canceling the previous
// in-flight attempt (cancel-and-replace).
package refresh

import (
	"context"
	"log"
	"sync"
	"time"
)

// FetchFunc performs one refresh. The context is canceled when the
// attempt is superseded by a newer one or the scheduler stops.
type FetchFunc func(ctx context.Context) error

// Stats is a snapshot of scheduler activity for status reporting.
type Stats struct {
	Runs     int       `json:"runs"`
	Failures int       `json:"failures"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
}

// Scheduler re-invokes one fetch on a fixed interval.
type Scheduler struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	logger   *log.Logger

	// kick requests an immediate refresh (parameter change)
	kick chan struct{}

	mu       sync.Mutex
	inflight context.CancelFunc
	stats    Stats
	attempts sync.WaitGroup
}

// NewScheduler creates a scheduler. A non-positive interval defaults to
// 30 seconds.
func NewScheduler(name string, interval time.Duration, fetch FetchFunc, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate refresh, canceling any in-flight attempt.
// Safe to call from any goroutine; coalesces while a kick is pending.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of scheduler activity.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run fetches immediately, then on every tick and kick, until the context
// is canceled. It blocks; run it in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("[%s] scheduler started, interval %v", s.name, s.interval)

	s.launch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.cancelInflight()
			s.attempts.Wait()
			s.logger.Printf("[%s] scheduler stopped", s.name)
			return ctx.Err()

		case <-ticker.C:
			s.launch(ctx)

		case <-s.kick:
			// Parameter change: replace the in-flight attempt and restart
			// the interval so the next periodic run is a full interval away
			s.launch(ctx)
			ticker.Reset(s.interval)
		}
	}
}

// launch cancels the previous attempt and starts a new one.
func (s *Scheduler) launch(ctx context.Context) {
	s.cancelInflight()

	attemptCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.inflight = cancel
	s.mu.Unlock()

	s.attempts.Add(1)
	go func() {
		defer s.attempts.Done()
		defer cancel()

		err := s.fetch(attemptCtx)

		s.mu.Lock()
		defer s.mu.Unlock()

		s.stats.Runs++
		s.stats.LastRun = time.Now()
		if err != nil {
			if attemptCtx.Err() != nil {
				// Canceled attempts are supersession, not failures
				return
			}
			s.stats.Failures++
			s.stats.LastErr = err.Error()
			s.logger.Printf("[%s] refresh failed: %v", s.name, err)
			return
		}
		s.stats.LastErr = ""
	}()
}

// cancelInflight cancels the current attempt, if any.
func (s *Scheduler) cancelInflight() {
	s.mu.Lock()
	cancel := s.inflight
	s.inflight = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
