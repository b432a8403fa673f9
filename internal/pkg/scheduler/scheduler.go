// Package scheduler runs named jobs on fixed intervals.
//
// Ticks come from an injected clock.Clock so tests can drive jobs with
// clock.Fake. Each job runs in its own goroutine owned by a goroutine.Manager;
// runs of the same job never overlap, and a tick that arrives while a run is
// still in progress is dropped.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

var (
	// ErrAlreadyStarted is returned by Start and Add once the scheduler runs.
	ErrAlreadyStarted = errors.New("scheduler: already started")
	// ErrInvalidJob is returned for a job without a name, run func or positive interval.
	ErrInvalidJob = errors.New("scheduler: job needs a name, a run func and a positive interval")
	// ErrNotStarted is returned when the goroutine manager refuses a job loop.
	ErrNotStarted = errors.New("scheduler: job loop could not be started")
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler owns a set of jobs.
type Scheduler struct {
	clock clock.Clock
	gm    *goroutine.Manager

	mu     sync.Mutex
	jobs   []Job
	cancel context.CancelFunc

	running atomic.Bool
	runs    atomic.Int64
}

// New returns a Scheduler that ticks on c and runs job loops through gm.
func New(c clock.Clock, gm *goroutine.Manager) *Scheduler {
	return &Scheduler{clock: c, gm: gm}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyStarted
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches every job loop. Loops exit when ctx is done or Stop is called.
//
// Tickers are created before Start returns, so time advanced afterwards is
// observed by every job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range s.jobs {
		tk := s.clock.NewTicker(job.Interval)
		ok := s.gm.Go(ctx, func(ctx context.Context) error {
			defer tk.Stop()
			s.loop(ctx, job, tk)
			return nil
		})
		if !ok {
			tk.Stop()
			cancel()
			s.running.Store(false)
			return ErrNotStarted
		}
		slog.InfoContext(ctx, "scheduler job started", "job", job.Name, "interval", job.Interval.String())
	}

	return nil
}

// Stop cancels every job loop. It does not wait; the goroutine.Manager does.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running.Store(false)
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Runs returns how many job runs finished since start.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) loop(ctx context.Context, job Job, tk clock.Ticker) {
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler job stopped", "job", job.Name)
			return
		case <-tk.C():
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	defer func() {
		s.runs.Inc()

		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in scheduler job", "job", job.Name, "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in scheduler job", "job", job.Name, "because", rvr, "stack", string(stack))
			}
		}
	}()

	start := s.clock.Now()
	if err := job.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduler job failed", "job", job.Name, "error", err)
		return
	}
	slog.DebugContext(ctx, "scheduler job finished", "job", job.Name, "elapsed", s.clock.Now().Sub(start).String())
}
