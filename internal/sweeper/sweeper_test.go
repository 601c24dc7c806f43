package sweeper

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeperRunsRegisteredJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timer-based test in short mode")
	}

	s := New(testLogger())

	// cron rounds @every intervals up to one second.
	var runs atomic.Int32
	if err := s.Add("test", time.Second, func() int {
		runs.Add(1)
		return 1
	}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for runs.Load() < 1 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 1 sweep run, got %d", runs.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestSweeperStartStopIdempotent(t *testing.T) {
	s := New(testLogger())

	if err := s.Add("noop", time.Minute, func() int { return 0 }); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSweeperStopWithoutStart(t *testing.T) {
	s := New(testLogger())
	s.Stop()
}
