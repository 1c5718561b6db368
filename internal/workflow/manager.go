package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"briefcast/internal/config"
	"briefcast/internal/download"
	"briefcast/internal/logging"
	"briefcast/internal/queue"
	"briefcast/internal/retention"
	"briefcast/internal/stablefile"
	"briefcast/internal/transcription"
)

// Task names.
const (
	TaskDownload = "download"
	TaskProcess  = "process"
	TaskPush     = "push"
	// TaskSweep is never scheduled; push already prunes. It exists for
	// "briefcast once sweep".
	TaskSweep = "sweep"
)

// TaskNames lists every task RunOnce accepts.
var TaskNames = []string{TaskDownload, TaskProcess, TaskPush, TaskSweep}

// FileSweeper imports stable files dropped into the audio directory.
type FileSweeper interface {
	Sweep(ctx context.Context) (stablefile.Report, error)
}

// Retainer prunes entries and reconciles artifact directories.
type Retainer interface {
	Prune(ctx context.Context) (retention.Report, error)
	Reconcile(ctx context.Context) (retention.ReconcileReport, error)
}

// SourceFetcher discovers new entries for one source.
type SourceFetcher interface {
	Fetch(ctx context.Context, source string) (download.FetchReport, error)
}

// StageSet bundles the collaborators the tasks drive. Nil members skip their
// step.
type StageSet struct {
	Fetcher     SourceFetcher
	Downloader  Processor[struct{}]
	Importer    FileSweeper
	Transcriber Processor[*transcription.WorkerContext]
	Summarizer  Processor[struct{}]
	Pusher      Processor[struct{}]
	Retention   Retainer
}

// StageEvent is delivered to an Observer after each step of a task.
type StageEvent struct {
	Task   string
	Step   string
	Report Report
	Err    error
}

// Observer receives step events, for example to drive a progress bar.
type Observer func(StageEvent)

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithSchedulerOptions forwards options to the Manager's scheduler.
func WithSchedulerOptions(opts ...SchedulerOption) ManagerOption {
	return func(m *Manager) {
		m.schedOpts = append(m.schedOpts, opts...)
	}
}

// WithObserver registers a step observer.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = observer
	}
}

// Manager owns the scheduler and the three pipeline tasks.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	stages    StageSet
	logger    *slog.Logger
	scheduler *Scheduler
	schedOpts []SchedulerOption
	observer  Observer

	mu          sync.RWMutex
	running     bool
	lastReports map[queue.Stage]Report
}

// NewManager constructs a Manager and registers its scheduled tasks.
func NewManager(cfg *config.Config, store *queue.Store, stages StageSet, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:         cfg,
		store:       store,
		stages:      stages,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		lastReports: make(map[queue.Stage]Report),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.scheduler = NewScheduler(logger, m.schedOpts...)

	tasks := []Task{
		{Name: TaskDownload, Interval: config.Interval(cfg.Workflow.DownloadInterval), Run: m.Download},
		{Name: TaskProcess, Interval: config.Interval(cfg.Workflow.ProcessInterval), Run: m.Process},
		{Name: TaskPush, Interval: config.Interval(cfg.Workflow.PushInterval), Run: m.Push},
	}
	for _, task := range tasks {
		if err := m.scheduler.Add(task); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Run blocks, running tasks on schedule until ctx is cancelled. In-flight
// items finish before it returns.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("workflow already running")
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()
	return m.scheduler.Run(ctx)
}

// RunOnce runs a single task immediately.
func (m *Manager) RunOnce(ctx context.Context, name string) error {
	if name == TaskSweep {
		return m.Sweep(ctx)
	}
	return m.scheduler.RunTask(ctx, name)
}

// Scheduler exposes the underlying scheduler.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

func (m *Manager) notify(event StageEvent) {
	if m.observer != nil {
		m.observer(event)
	}
}

func (m *Manager) recordReport(report Report) {
	m.mu.Lock()
	m.lastReports[report.Stage] = report
	m.mu.Unlock()
}
