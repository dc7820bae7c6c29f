package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"engdash/internal/log"
)

// RefreshSchedulerConfig holds configuration for the refresh scheduler
type RefreshSchedulerConfig struct {
	// Interval is how often the snapshot is dropped. Zero disables the scheduler.
	Interval time.Duration

	// Announce publishes each scheduled refresh to other instances.
	Announce bool
}

// DefaultRefreshSchedulerConfig returns sensible defaults
func DefaultRefreshSchedulerConfig() RefreshSchedulerConfig {
	return RefreshSchedulerConfig{
		Interval: 5 * time.Minute,
	}
}

// Refresher is the part of DashboardService the scheduler drives.
type Refresher interface {
	Invalidate()
	Refresh(ctx context.Context, reason string)
}

// RefreshScheduler periodically invalidates the cached snapshot so sources
// without change notifications are still re-read.
type RefreshScheduler struct {
	target Refresher
	config RefreshSchedulerConfig

	mu      sync.Mutex
	running bool
	ticks   int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshScheduler(target Refresher, config RefreshSchedulerConfig) *RefreshScheduler {
	return &RefreshScheduler{
		target: target,
		config: config,
	}
}

// Start begins the ticker loop. Returns an error if already running or the
// interval is not positive.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", s.config.Interval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("refresh scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh scheduler started",
		log.FieldComponent, log.ComponentWorker,
		"interval", s.config.Interval,
		"announce", s.config.Announce)
	return nil
}

// Stop stops the loop and waits for it to exit.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh scheduler stopped gracefully", log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh scheduler stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}
	return nil
}

func (s *RefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ticks reports how many scheduled refreshes ran.
func (s *RefreshScheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *RefreshScheduler) runLoop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.doneCh)
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *RefreshScheduler) tick(ctx context.Context) {
	if s.config.Announce {
		s.target.Refresh(ctx, "scheduled")
	} else {
		s.target.Invalidate()
	}

	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()

	slog.DebugContext(ctx, "Scheduled snapshot refresh",
		log.FieldComponent, log.ComponentWorker, log.FieldOperation, log.OpRefresh)
}

// Run starts the scheduler and blocks until ctx is done.
func (s *RefreshScheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}
