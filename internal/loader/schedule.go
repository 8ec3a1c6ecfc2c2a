package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler reloads a root on a cron schedule. It complements Watch on
// filesystems that do not deliver change events.
type Scheduler struct {
	loader *Loader
	root   string
	config *Config
	onLoad func(*Statistics, error)

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a Scheduler. onLoad, if non-nil, receives the result
// of every scheduled run except runs skipped because a load was in progress.
func (l *Loader) NewScheduler(root string, config *Config, onLoad func(*Statistics, error)) *Scheduler {
	return &Scheduler{
		loader: l,
		root:   root,
		config: config,
		onLoad: onLoad,
		cron:   cron.New(),
	}
}

// Start validates schedule and begins running loads. The scheduler stops
// when ctx is done.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reload: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.loader.logger.Info("Reload scheduler started", "root", s.root, "schedule", schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	stats, err := s.loader.Load(ctx, s.root, s.config)
	if errors.Is(err, ErrLoadInProgress) {
		s.loader.logger.Debug("Scheduled reload skipped, load in progress", "root", s.root)
		return
	}
	if s.onLoad != nil {
		s.onLoad(stats, err)
		return
	}
	if err != nil {
		s.loader.logger.Error("Scheduled reload failed", "root", s.root, "error", err)
	}
}

// Stop stops the scheduler and waits for a running load to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.loader.logger.Info("Reload scheduler stopped", "root", s.root)
}

// NextRun returns the time of the next scheduled load, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
