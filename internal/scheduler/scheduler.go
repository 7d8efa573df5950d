package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// TaskFunc is one cycle of a periodic task. Errors are recorded and logged;
// they never stop future ticks or sibling tasks.
type TaskFunc func(ctx context.Context) error

// TaskStatus is the externally visible state of one named task.
type TaskStatus struct {
	Scheduled bool       `json:"scheduled"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	entryID  cron.EntryID

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	lastErr error
}

// Scheduler owns a map of named periodic tasks with an explicit start/stop
// lifecycle. It is constructed once at process start and passed by reference
// to anything needing manual triggers; there is no ambient global registry.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	tasks   map[string]*task
	order   []string
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(logger *logger.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		metrics: m,
		tasks:   map[string]*task{},
	}
}

// Register adds a named periodic task. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		s.logger.Warn("task already registered, replacing", "task", name)
	} else {
		s.order = append(s.order, name)
	}
	s.tasks[name] = &task{name: name, interval: interval, fn: fn}
}

// Start schedules all registered tasks. Each tick is guarded: if the previous
// cycle of a task is still running, the tick is skipped instead of queueing,
// so overrunning cycles never pile up.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		t := s.tasks[name]
		t.entryID = s.cron.Schedule(cron.Every(t.interval), cron.FuncJob(func() {
			s.runTask(s.runCtx, t)
		}))
		s.logger.Info("task scheduled", "task", t.name, "interval", t.interval.String())
	}
	s.cron.Start()
}

// Stop halts all periodic tasks and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger runs one cycle of the named task synchronously, for tests and the
// ops endpoint. The skip-if-running guard still applies.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return apperrors.NotFound("task", nil)
	}

	if !s.runTask(ctx, t) {
		return apperrors.Conflict("task is already running", nil)
	}

	t.mu.Lock()
	err := t.lastErr
	t.mu.Unlock()
	return err
}

// Status reports every task's scheduling state.
func (s *Scheduler) Status() map[string]TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[string]TaskStatus, len(s.tasks))
	for name, t := range s.tasks {
		t.mu.Lock()
		status := TaskStatus{
			Scheduled: s.started,
			Running:   t.running,
			Interval:  t.interval.String(),
			LastRun:   t.lastRun,
		}
		if t.lastErr != nil {
			status.LastError = t.lastErr.Error()
		}
		t.mu.Unlock()

		if s.started {
			if next := s.cron.Entry(t.entryID).Next; !next.IsZero() {
				nextCopy := next
				status.NextRun = &nextCopy
			}
		}
		statuses[name] = status
	}
	return statuses
}

// runTask executes one guarded cycle. It returns false when the task was
// skipped because a previous cycle is still in flight.
func (s *Scheduler) runTask(ctx context.Context, t *task) bool {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		s.logger.Warn("skipping tick, previous cycle still running", "task", t.name)
		s.metrics.TaskRuns.WithLabelValues(t.name, "skipped").Inc()
		return false
	}
	t.running = true
	t.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	timer := prometheus.NewTimer(s.metrics.TaskDuration.WithLabelValues(t.name))
	err := t.fn(ctx)
	timer.ObserveDuration()

	now := time.Now()
	t.mu.Lock()
	t.running = false
	t.lastRun = &now
	t.lastErr = err
	t.mu.Unlock()

	if err != nil {
		// A failed cycle is logged and retried at the next tick.
		s.logger.Error(err, "task cycle failed", "task", t.name)
		s.metrics.TaskRuns.WithLabelValues(t.name, "error").Inc()
	} else {
		s.metrics.TaskRuns.WithLabelValues(t.name, "ok").Inc()
	}
	return true
}
