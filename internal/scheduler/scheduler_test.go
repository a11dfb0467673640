package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSetJobRejectsInvalidExpressionKeepsPrevious(t *testing.T) {
	s := New(nil)

	if err := s.SetJob("@every 1h", func() {}); err != nil {
		t.Fatalf("SetJob valid: %v", err)
	}
	prev := s.CronExpr()

	if err := s.SetJob("not a cron expression", func() {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}

	if s.CronExpr() != prev {
		t.Errorf("expected previous job to survive a failed SetJob, got %q want %q", s.CronExpr(), prev)
	}
}

func TestNextRunAtNilBeforeSetJob(t *testing.T) {
	s := New(nil)
	if s.NextRunAt() != nil {
		t.Error("expected nil NextRunAt before any job is set")
	}
}

func TestSetJobFires(t *testing.T) {
	s := New(nil)
	var fired atomic.Bool

	if err := s.SetJob("@every 50ms", func() { fired.Store(true) }); err != nil {
		t.Fatalf("SetJob: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !fired.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !fired.Load() {
		t.Error("expected job to fire within deadline")
	}
}
