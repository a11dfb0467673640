// Package scheduler wraps github.com/robfig/cron/v3 to re-invoke a full
// scan→group→reference→stats→results→store run on a cron schedule.
// Every invocation is a complete, independent
// run — the scheduler carries no state between runs beyond the on-disk
// fingerprint cache. There is no incremental re-scan.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dupefind/dupefind/internal/log"
)

// Scheduler wraps robfig/cron and tracks the single job it is primarily
// responsible for (the periodic full rerun), splitting
// SetJob/AddJob between "the" tracked job and incidental background
// jobs.
type Scheduler struct {
	mu       sync.RWMutex
	c        *cron.Cron
	entryID  cron.EntryID
	cronExpr string
	logger   *log.Logger
}

// New creates a stopped Scheduler. Call Start to activate it.
func New(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scheduler{c: cron.New(), logger: logger}
}

// SetJob replaces the current tracked job with the given cron expression
// and callback. If the scheduler is already running, the new job takes
// effect immediately; an invalid expression leaves the previously tracked
// job untouched.
func (s *Scheduler) SetJob(expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.c.AddFunc(expr, fn)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if s.entryID != 0 {
		s.c.Remove(s.entryID)
	}
	s.entryID = id
	s.cronExpr = expr
	s.logger.Info("scheduler: job set", log.String("cron", expr))
	return nil
}

// AddJob adds a background job that fires on the given cron expression,
// without replacing the tracked run job.
func (s *Scheduler) AddJob(expr string, fn func()) error {
	if _, err := s.c.AddFunc(expr, fn); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.logger.Info("scheduler: background job added", log.String("cron", expr))
	return nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts the cron loop, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }

// NextRunAt returns the next scheduled time for the tracked job, or nil if
// no job has been set via SetJob.
func (s *Scheduler) NextRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entryID == 0 {
		return nil
	}
	entry := s.c.Entry(s.entryID)
	if entry.ID == 0 {
		return nil
	}
	t := entry.Next
	return &t
}

// CronExpr returns the tracked job's current cron expression.
func (s *Scheduler) CronExpr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cronExpr
}
