package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"DealRadar/internal/domain"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func snapshot(s *Scheduler, name string) (domain.JobSnapshot, bool) {
	for _, j := range s.Jobs() {
		if j.Name == name {
			return j, true
		}
	}
	return domain.JobSnapshot{}, false
}

func TestRunsDueJobOnTick(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	var runs atomic.Int64
	s.Register("poll", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })

	snap, ok := snapshot(s, "poll")
	if !ok {
		t.Fatal("job missing from snapshot")
	}
	if snap.Stats.SuccessfulRuns < 2 {
		t.Fatalf("successful runs = %d, want >= 2", snap.Stats.SuccessfulRuns)
	}
	if snap.Stats.FailedRuns != 0 {
		t.Fatalf("failed runs = %d, want 0", snap.Stats.FailedRuns)
	}
}

func TestOnRunCompleteReceivesFreshSnapshot(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)

	var mu sync.Mutex
	var seen []domain.JobSnapshot
	s.OnRunComplete(func(snap domain.JobSnapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.Register("poll", 20*time.Millisecond, func(ctx context.Context) error { return nil })
	s.Register("broken", 20*time.Millisecond, func(ctx context.Context) error {
		return errors.New("upstream unavailable")
	})

	s.Start(context.Background())
	defer s.Stop()

	byName := func(name string) (domain.JobSnapshot, bool) {
		mu.Lock()
		defer mu.Unlock()
		for _, snap := range seen {
			if snap.Name == name {
				return snap, true
			}
		}
		return domain.JobSnapshot{}, false
	}
	waitFor(t, time.Second, func() bool {
		_, a := byName("poll")
		_, b := byName("broken")
		return a && b
	})

	ok, _ := byName("poll")
	if ok.Stats.TotalRuns < 1 || ok.Stats.SuccessfulRuns < 1 || ok.Running {
		t.Fatalf("poll snapshot = %+v", ok)
	}
	failed, _ := byName("broken")
	if failed.Stats.FailedRuns < 1 || failed.Stats.LastError != "upstream unavailable" {
		t.Fatalf("broken snapshot = %+v", failed)
	}
}

func TestJobNeverOverlapsItself(t *testing.T) {
	t.Parallel()

	s := New(5*time.Millisecond, nil)
	var inFlight atomic.Int64
	var overlapped atomic.Bool

	s.Register("slow", time.Millisecond, func(ctx context.Context) error {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer inFlight.Add(-1)
		time.Sleep(40 * time.Millisecond)
		return nil
	})

	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if overlapped.Load() {
		t.Fatal("job overlapped with itself")
	}
}

func TestTriggerMakesJobDue(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	var runs atomic.Int64
	s.Register("rare", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	// The registration run happens immediately; the hour interval then parks it.
	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })

	if !s.Trigger("rare") {
		t.Fatal("trigger refused an idle job")
	}
	waitFor(t, time.Second, func() bool { return runs.Load() == 2 })
}

func TestTriggerUnknownAndRunning(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	release := make(chan struct{})
	s.Register("busy", time.Hour, func(ctx context.Context) error {
		<-release
		return nil
	})

	if s.Trigger("nope") {
		t.Fatal("trigger accepted an unknown job")
	}

	s.Start(context.Background())
	waitFor(t, time.Second, func() bool {
		snap, ok := snapshot(s, "busy")
		return ok && snap.Running
	})

	if s.Trigger("busy") {
		t.Fatal("trigger accepted a running job")
	}

	close(release)
	s.Stop()
}

func TestFailedRunRecordsError(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	s.Register("flaky", time.Hour, func(ctx context.Context) error {
		return errors.New("upstream unavailable")
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		snap, ok := snapshot(s, "flaky")
		return ok && snap.Stats.FailedRuns == 1
	})

	snap, _ := snapshot(s, "flaky")
	if snap.Stats.LastError != "upstream unavailable" {
		t.Fatalf("last error = %q", snap.Stats.LastError)
	}
	if snap.Stats.TotalRuns != 1 || snap.Stats.SuccessfulRuns != 0 {
		t.Fatalf("stats = %+v", snap.Stats)
	}
}

func TestPanickingHandlerCountsAsFailure(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	s.Register("explodes", time.Hour, func(ctx context.Context) error {
		panic("boom")
	})
	var runs atomic.Int64
	s.Register("calm", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		snap, ok := snapshot(s, "explodes")
		return ok && snap.Stats.FailedRuns == 1
	})
	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
}

func TestStopDrainsInFlightHandlers(t *testing.T) {
	t.Parallel()

	s := New(5*time.Millisecond, nil)
	var done atomic.Bool
	s.Register("slow", time.Hour, func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
		return nil
	})

	s.Start(context.Background())
	waitFor(t, time.Second, func() bool {
		snap, ok := snapshot(s, "slow")
		return ok && (snap.Running || snap.Stats.TotalRuns == 1)
	})

	s.Stop()
	if !done.Load() {
		t.Fatal("Stop returned before the in-flight handler finished")
	}
}

func TestSchedulerRestarts(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, nil)
	var runs atomic.Int64
	s.Register("poll", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
	s.Stop()

	before := runs.Load()
	s.Start(context.Background())
	waitFor(t, time.Second, func() bool { return runs.Load() > before })
	s.Stop()
}

func TestJobsSortedByName(t *testing.T) {
	t.Parallel()

	s := New(time.Minute, nil)
	noop := func(ctx context.Context) error { return nil }
	s.Register("zeta", time.Hour, noop)
	s.Register("alpha", time.Hour, noop)
	s.Register("mid", time.Hour, noop)

	jobs := s.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if jobs[i].Name != name {
			t.Fatalf("jobs[%d] = %q, want %q", i, jobs[i].Name, name)
		}
	}
}

func TestDisabledJobSkipped(t *testing.T) {
	t.Parallel()

	s := New(5*time.Millisecond, nil)
	var runs atomic.Int64
	s.Register("off", time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.SetEnabled("off", false)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if runs.Load() != 0 {
		t.Fatalf("disabled job ran %d times", runs.Load())
	}
}

func TestAverageRunTimeAccumulates(t *testing.T) {
	t.Parallel()

	s := New(5*time.Millisecond, nil)
	s.Register("timed", time.Millisecond, func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool {
		snap, ok := snapshot(s, "timed")
		return ok && snap.Stats.TotalRuns >= 3
	})

	snap, _ := snapshot(s, "timed")
	if snap.Stats.AvgRunTimeMs < 5 {
		t.Fatalf("avg run time = %v ms, want >= 5", snap.Stats.AvgRunTimeMs)
	}
}
