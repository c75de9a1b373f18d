// Package scheduler owns the set of recurring jobs that drive the
// aggregation pipeline. A tick loop scans the job table; due jobs dispatch
// on their own goroutine, gated by a running flag so a job never overlaps
// with itself.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"DealRadar/internal/domain"
	"DealRadar/internal/ports"
)

// Handler is one job's work. Any returned error counts as a failed run.
type Handler func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	enabled  bool
	running  bool
	lastRun  time.Time
	nextRun  time.Time
	handler  Handler
	stats    domain.JobStats
}

// Scheduler implements ports.Scheduler with a single long-lived tick loop.
type Scheduler struct {
	mu    sync.Mutex
	jobs  map[string]*job
	tick  time.Duration
	clock func() time.Time

	stop    chan struct{}
	started bool
	wg      sync.WaitGroup

	onRunComplete func(domain.JobSnapshot)

	logger *slog.Logger
}

var _ ports.Scheduler = (*Scheduler)(nil)

// New builds a stopped scheduler. tick <= 0 defaults to one minute.
func New(tick time.Duration, logger *slog.Logger) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		jobs:   map[string]*job{},
		tick:   tick,
		clock:  time.Now,
		logger: logger,
	}
}

// Register adds a named job. The first run happens on the next tick; the
// name must be unique, so re-registering replaces the previous handler but
// keeps accumulated statistics.
func (s *Scheduler) Register(name string, interval time.Duration, handler func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		existing.interval = interval
		existing.handler = handler
		return
	}
	s.jobs[name] = &job{
		name:     name,
		interval: interval,
		enabled:  true,
		nextRun:  s.clock(),
		handler:  handler,
	}
}

// OnRunComplete installs a callback invoked after every finished run with
// the job's fresh snapshot. Set it before Start; the callback runs on the
// job's goroutine, so it must not block for long.
func (s *Scheduler) OnRunComplete(fn func(domain.JobSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRunComplete = fn
}

// SetEnabled flips a job's enabled flag; disabled jobs keep their schedule
// but are skipped by the tick loop.
func (s *Scheduler) SetEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		j.enabled = enabled
	}
}

// Start launches the tick loop. Starting an already-started scheduler is a
// no-op, as is starting one with no jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		s.scan(ctx)
		for {
			select {
			case <-ticker.C:
				s.scan(ctx)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts scheduling and drains in-flight handlers without killing them.
// The scheduler can be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}

// Trigger makes a job due immediately; the next tick picks it up. Returns
// false for unknown jobs and for jobs already running (a no-op by contract).
func (s *Scheduler) Trigger(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok || j.running {
		return false
	}
	j.nextRun = s.clock()
	return true
}

// Jobs returns point-in-time snapshots sorted by name.
func (s *Scheduler) Jobs() []domain.JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.JobSnapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, domain.JobSnapshot{
			Name:     j.name,
			Interval: j.interval,
			Enabled:  j.enabled,
			Running:  j.running,
			LastRun:  j.lastRun,
			NextRun:  j.nextRun,
			Stats:    j.stats,
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// scan dispatches every due job. Jobs run concurrently with each other but
// the running flag keeps each job serial with itself.
func (s *Scheduler) scan(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if j.enabled && !j.running && !j.nextRun.After(now) {
			j.running = true
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, k int) bool { return due[i].name < due[k].name })
	for _, j := range due {
		s.wg.Add(1)
		go s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	defer s.wg.Done()

	start := s.clock()
	err := s.invoke(ctx, j)
	elapsed := s.clock().Sub(start)

	s.mu.Lock()
	j.running = false
	j.lastRun = start
	j.nextRun = s.clock().Add(j.interval)

	j.stats.TotalRuns++
	if err != nil {
		j.stats.FailedRuns++
		j.stats.LastError = err.Error()
	} else {
		j.stats.SuccessfulRuns++
	}
	n := float64(j.stats.TotalRuns)
	sample := float64(elapsed.Milliseconds())
	j.stats.AvgRunTimeMs = (j.stats.AvgRunTimeMs*(n-1) + sample) / n
	snap := domain.JobSnapshot{
		Name:     j.name,
		Interval: j.interval,
		Enabled:  j.enabled,
		Running:  j.running,
		LastRun:  j.lastRun,
		NextRun:  j.nextRun,
		Stats:    j.stats,
	}
	hook := s.onRunComplete
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}

	if err != nil {
		s.warn("job failed", "job", j.name, "error", err, "elapsed", elapsed)
	} else {
		s.debug("job finished", "job", j.name, "elapsed", elapsed)
	}
}

// invoke shields the scheduler from panicking handlers; a panic is recorded
// as a failed run and never takes down other jobs.
func (s *Scheduler) invoke(ctx context.Context, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.UpstreamError{Kind: domain.ErrPermanentUpstream, Message: "handler panic"}
			s.warn("job panicked", "job", j.name, "panic", r)
		}
	}()
	return j.handler(ctx)
}

func (s *Scheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
