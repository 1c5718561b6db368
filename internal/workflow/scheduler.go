package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"briefcast/internal/logging"
	"briefcast/internal/services"
)

// Clock abstracts time for the scheduler loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Task is a named unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type taskState struct {
	task    Task
	next    time.Time
	lastRun time.Time
	lastErr error
	runs    int
}

// TaskStatus is a snapshot of one task's schedule.
type TaskStatus struct {
	Name     string
	Interval time.Duration
	Next     time.Time
	LastRun  time.Time
	LastErr  error
	Runs     int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock, primarily for tests.
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Scheduler runs tasks one at a time, each when its next-due time passes.
type Scheduler struct {
	clock  Clock
	logger *slog.Logger
	tasks  []*taskState
	byName map[string]*taskState
}

// NewScheduler constructs an empty scheduler.
func NewScheduler(logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		clock:  realClock{},
		logger: logging.NewComponentLogger(logger, "scheduler"),
		byName: make(map[string]*taskState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a task. New tasks are due immediately. Registration order
// decides which of several due tasks runs first.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return errors.New("scheduler: task needs a name and a run function")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("scheduler: task %s needs a positive interval", task.Name)
	}
	if _, exists := s.byName[task.Name]; exists {
		return fmt.Errorf("scheduler: duplicate task %s", task.Name)
	}
	state := &taskState{task: task, next: s.clock.Now()}
	s.tasks = append(s.tasks, state)
	s.byName[task.Name] = state
	return nil
}

// Names lists registered tasks in registration order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.tasks))
	for _, state := range s.tasks {
		names = append(names, state.task.Name)
	}
	return names
}

// Status returns the schedule of every task.
func (s *Scheduler) Status() []TaskStatus {
	out := make([]TaskStatus, 0, len(s.tasks))
	for _, state := range s.tasks {
		out = append(out, TaskStatus{
			Name:     state.task.Name,
			Interval: state.task.Interval,
			Next:     state.next,
			LastRun:  state.lastRun,
			LastErr:  state.lastErr,
			Runs:     state.runs,
		})
	}
	return out
}

// RunTask runs one task immediately, outside its schedule.
func (s *Scheduler) RunTask(ctx context.Context, name string) error {
	state, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.fire(ctx, state)
}

// Run loops until ctx is cancelled. A failing task is logged and rescheduled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return errors.New("scheduler: no tasks registered")
	}
	s.logger.Info("scheduler started", logging.Int("tasks", len(s.tasks)))
	for {
		now := s.clock.Now()
		for _, state := range s.tasks {
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopped")
				return nil
			}
			if state.next.After(now) {
				continue
			}
			_ = s.fire(ctx, state)
			state.next = s.clock.Now().Add(state.task.Interval)
		}

		wait := s.nextDue().Sub(s.clock.Now())
		if wait <= 0 {
			continue
		}
		s.logger.Debug("scheduler sleeping", logging.Duration("wait", wait))
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-s.clock.After(wait):
		}
	}
}

func (s *Scheduler) nextDue() time.Time {
	next := s.tasks[0].next
	for _, state := range s.tasks[1:] {
		if state.next.Before(next) {
			next = state.next
		}
	}
	return next
}

func (s *Scheduler) fire(ctx context.Context, state *taskState) error {
	runID := uuid.NewString()
	ctx = services.WithRunID(services.WithTask(ctx, state.task.Name), runID)
	logger := logging.WithContext(ctx, s.logger)

	started := s.clock.Now()
	logger.Info("task started", logging.String(logging.FieldEventType, "task_start"))
	err := state.task.Run(ctx)
	state.lastRun = started
	state.lastErr = err
	state.runs++
	if err != nil {
		logger.Error(
			"task failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "task_failed"),
			logging.String(logging.FieldErrorHint, "the task runs again at its next interval"),
		)
		return err
	}
	logger.Info(
		"task completed",
		logging.String(logging.FieldEventType, "task_complete"),
		logging.Duration("task_duration", s.clock.Now().Sub(started)),
	)
	return nil
}
