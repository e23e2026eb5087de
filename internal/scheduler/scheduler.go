package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

const lookupTimeout = 30 * time.Second

// Looker records the current weather for a query.
type Looker interface {
	Lookup(ctx context.Context, req observation.LookupRequest) (observation.Observation, error)
}

// Scheduler periodically records observations for tracked locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	looker    Looker
	locations []string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a scheduler. It does nothing when locations is empty.
func New(locations []string, interval time.Duration, looker Looker, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		looker:    looker,
		locations: locations,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 || s.looker == nil {
		s.logger.Info("no tracked locations configured; scheduler idle")
		return nil
	}
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.RunOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "locations", len(s.locations), "interval", s.interval.String())
	return nil
}

// RunOnce records every tracked location concurrently and waits for all lookups.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, loc := range s.locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
			defer cancel()
			if _, err := s.looker.Lookup(ctx, observation.LookupRequest{Query: loc}); err != nil {
				s.logger.Warn("tracked lookup failed", "location", loc, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.logger.Info("tracked refresh completed",
		"locations", len(s.locations),
		"failed", failed,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
