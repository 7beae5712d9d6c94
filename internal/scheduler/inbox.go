// Package scheduler runs periodic library jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/services"
	"github.com/mrlokans/roots/internal/settingsstore"
)

var (
	// ErrAlreadyImporting is returned by RunNow and Trigger while an import
	// is in progress.
	ErrAlreadyImporting = errors.New("inbox import already in progress")
	// ErrNotRunning is returned by Trigger before Start or after Stop.
	ErrNotRunning = errors.New("inbox scheduler is not running")
)

// Importer imports a batch of files into the library.
//
// Implementations:
//   - services.Library (services/library.go)
type Importer interface {
	Import(ctx context.Context, paths []string, opts services.ImportOptions) services.Report
}

// StatusRecorder persists the outcome of each run.
//
// Implementations:
//   - settingsstore.SettingsStore (settingsstore/settingsstore.go)
type StatusRecorder interface {
	SetInboxStatus(status, message string) error
}

// InboxScheduler periodically imports every supported file found in an
// inbox directory.
type InboxScheduler struct {
	inbox    string
	schedule string
	importer Importer
	status   StatusRecorder
	logger   *slog.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	importing atomic.Bool
	runs      sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewInboxScheduler creates a scheduler for inbox on the cron schedule.
// status may be nil.
func NewInboxScheduler(inbox, schedule string, importer Importer, status StatusRecorder, logger *slog.Logger) *InboxScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxScheduler{
		inbox:    inbox,
		schedule: schedule,
		importer: importer,
		status:   status,
		logger:   logger,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler. A scheduler without an inbox stays idle.
func (s *InboxScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.inbox == "" {
		s.logger.Info("Inbox scheduler: inbox not configured, skipping")
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(s.ctx); err != nil && !errors.Is(err, ErrAlreadyImporting) {
			s.logger.Error("Inbox import failed", "inbox", s.inbox, "error", err)
		}
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule inbox job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRunAfter(s.schedule, time.Now())
	s.logger.Info("Inbox scheduler started",
		"inbox", s.inbox,
		"schedule", s.schedule,
		"description", DescribeSchedule(s.schedule),
		"next_run", next)

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.ctx.Done())

	return nil
}

// Stop cancels any import in progress and waits for it to return.
func (s *InboxScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.runs.Wait()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	s.logger.Info("Inbox scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *InboxScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsImporting returns whether an import is in progress.
func (s *InboxScheduler) IsImporting() bool {
	return s.importing.Load()
}

// NextRun returns when the next import will occur, or nil when stopped.
func (s *InboxScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// Trigger starts an import in the background under the scheduler's
// context, so Stop cancels it and waits for it like a scheduled run.
func (s *InboxScheduler) Trigger() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return ErrNotRunning
	}
	if !s.importing.CompareAndSwap(false, true) {
		return ErrAlreadyImporting
	}

	s.runs.Add(1)
	go func(ctx context.Context) {
		defer s.runs.Done()
		defer s.importing.Store(false)
		if _, err := s.run(ctx); err != nil {
			s.logger.Error("Inbox import failed", "inbox", s.inbox, "error", err)
		}
	}(s.ctx)
	return nil
}

// RunNow imports the inbox once, synchronously. Overlapping runs are
// rejected with ErrAlreadyImporting.
func (s *InboxScheduler) RunNow(ctx context.Context) (services.Report, error) {
	if !s.importing.CompareAndSwap(false, true) {
		s.logger.Debug("Inbox import: skipped (already importing)")
		return services.Report{}, ErrAlreadyImporting
	}
	defer s.importing.Store(false)
	return s.run(ctx)
}

func (s *InboxScheduler) run(ctx context.Context) (services.Report, error) {
	start := time.Now()
	paths, err := importer.Discover(s.inbox)
	if err != nil {
		s.record(settingsstore.StatusFailed, fmt.Sprintf("Failed to scan inbox: %v", err))
		return services.Report{}, fmt.Errorf("scan inbox: %w", err)
	}
	if len(paths) == 0 {
		s.logger.Debug("Inbox import: nothing to import", "inbox", s.inbox)
		s.record(settingsstore.StatusSuccess, "No files to import")
		return services.Report{}, nil
	}

	report := s.importer.Import(ctx, paths, services.ImportOptions{})
	msg := fmt.Sprintf("%s in %v", report.Summary(), time.Since(start).Round(time.Millisecond))
	switch {
	case report.Failed == 0:
		s.record(settingsstore.StatusSuccess, msg)
	case report.Imported > 0:
		s.record(settingsstore.StatusPartial, msg)
	default:
		s.record(settingsstore.StatusFailed, msg)
	}
	s.logger.Info("Inbox import finished", "inbox", s.inbox, "summary", msg)
	return report, nil
}

func (s *InboxScheduler) record(status, message string) {
	if s.status == nil {
		return
	}
	if err := s.status.SetInboxStatus(status, message); err != nil {
		s.logger.Warn("Failed to record inbox status", "error", err)
	}
}
