// Package scheduler drives the periodic incremental harvest.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
)

// IncrementalRunner executes one mutation-feed tick.
type IncrementalRunner interface {
	RunIncremental(ctx context.Context) error
}

// Scheduler ticks the incremental harvest at a fixed interval. Ticks that
// fire while a run is still in progress are skipped, not queued.
type Scheduler struct {
	runner   IncrementalRunner
	interval time.Duration
	enabled  bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a Scheduler from configuration.
func New(cfg *config.Config, runner IncrementalRunner) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: cfg.Harvester.Scheduler.Interval(),
		enabled:  cfg.Harvester.Scheduler.Enabled,
	}
}

// NewWithInterval creates a Scheduler with an explicit interval, used in
// tests.
func NewWithInterval(runner IncrementalRunner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, enabled: true}
}

// Start launches the tick loop in a background goroutine. A disabled
// scheduler starts nothing.
func (s *Scheduler) Start() {
	if !s.enabled {
		logger.Infof("Incremental harvest scheduler is disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})

	logger.Infof("Starting incremental harvest scheduler with interval %v", s.interval)
	go s.loop(ctx)
}

// Stop halts the tick loop and waits for it to exit. A run in progress is
// cancelled through its context.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.stopped
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one incremental harvest unless the previous one is still busy.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.mu.TryLock() {
		logger.Warnf("Previous incremental harvest still running, skipping tick")
		return
	}
	defer s.mu.Unlock()

	if err := s.runner.RunIncremental(ctx); err != nil {
		logger.Errorf("Incremental harvest failed: %v", err)
	}
}
