package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"briefcast/internal/logging"
	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/stage"
	"briefcast/internal/workpool"
)

// EntryUpdater persists one entry. queue.Store satisfies it.
type EntryUpdater interface {
	Update(ctx context.Context, entry *queue.Entry) error
}

// Batch loads the entries waiting at one stage, oldest first.
type Batch interface {
	Stage() queue.Stage
	Load(ctx context.Context, limit int) ([]*queue.Entry, error)
}

// Processor advances a single job using the worker's context W.
type Processor[W any] interface {
	Process(ctx context.Context, w W, job stage.Job) stage.Result
}

// WorkerFactory is implemented by processors that need a per-worker context,
// such as a transcription session.
type WorkerFactory[W any] interface {
	NewWorker(ctx context.Context, worker int) (W, error)
	CloseWorker(w W)
}

// BatchProcessor is implemented by processors that must see the whole batch
// at once, such as the push stage which sends one digest.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, jobs []stage.Job) []stage.Result
}

// Report summarizes one Advance call.
type Report struct {
	Stage     queue.Stage
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %d attempted, %d succeeded, %d failed, %d skipped", r.Stage, r.Attempted, r.Succeeded, r.Failed, r.Skipped)
}

// Advancer pulls a bounded batch at one stage, runs each job through the
// processor on a bounded pool, and commits results as they arrive.
type Advancer[W any] struct {
	Store     EntryUpdater
	Processor Processor[W]
	// Limit caps the batch; zero or less means unbounded.
	Limit int
	// PoolSize caps concurrent jobs; 1 runs them sequentially.
	PoolSize int
	Logger   *slog.Logger
}

// Advance runs one batch. Per-item failures are counted, never returned; the
// error is reserved for failing to load the batch.
func (a *Advancer[W]) Advance(ctx context.Context, batch Batch) (Report, error) {
	started := time.Now()
	report := Report{Stage: batch.Stage()}
	logger := a.logger(ctx, batch.Stage())

	entries, err := batch.Load(ctx, a.Limit)
	if err != nil {
		return report, fmt.Errorf("load %s batch: %w", batch.Stage(), err)
	}
	if len(entries) == 0 {
		logger.Debug("no entries waiting")
		return report, nil
	}

	jobs := make([]stage.Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, stage.NewJob(entry))
	}
	report.Attempted = len(jobs)
	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("batch_size", len(jobs)),
		logging.Int("limit", a.Limit),
	)

	// In-flight items finish even when the scheduler is shutting down.
	workCtx := context.WithoutCancel(ctx)
	commit := func(result stage.Result) {
		a.commit(workCtx, logger, &report, result)
	}

	if bp, ok := a.Processor.(BatchProcessor); ok {
		for _, result := range a.processBatch(workCtx, bp, jobs) {
			commit(result)
		}
	} else {
		pool := a.pool(batch.Stage())
		pool.Run(workCtx, jobs, func(ctx context.Context, w W, job stage.Job) stage.Result {
			ctx = services.WithEntryID(ctx, job.EntryID)
			return a.Processor.Process(ctx, w, job)
		}, commit)
	}

	report.Duration = time.Since(started)
	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("attempted", report.Attempted),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.Duration("stage_duration", report.Duration),
	)
	return report, nil
}

func (a *Advancer[W]) pool(name queue.Stage) *workpool.Pool[stage.Job, stage.Result, W] {
	pool := &workpool.Pool[stage.Job, stage.Result, W]{
		Size: max(a.PoolSize, 1),
		OnPanic: func(job stage.Job, recovered error) stage.Result {
			return stage.Failure(job, services.Wrap(services.ErrTransient, string(name), "process", "worker panicked", recovered))
		},
		OnWorkerError: func(job stage.Job, err error) stage.Result {
			return stage.Failure(job, services.Wrap(services.ErrExternalTool, string(name), "worker setup", "", err))
		},
	}
	if factory, ok := a.Processor.(WorkerFactory[W]); ok {
		pool.NewWorker = factory.NewWorker
		pool.CloseWorker = factory.CloseWorker
	}
	return pool
}

func (a *Advancer[W]) processBatch(ctx context.Context, bp BatchProcessor, jobs []stage.Job) (results []stage.Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("batch processor panicked: %v", recovered)
			results = make([]stage.Result, 0, len(jobs))
			for _, job := range jobs {
				results = append(results, stage.Failure(job, services.Wrap(services.ErrTransient, "", "process", "", err)))
			}
		}
	}()
	return bp.ProcessBatch(ctx, jobs)
}

func (a *Advancer[W]) commit(ctx context.Context, logger *slog.Logger, report *Report, result stage.Result) {
	job := result.Job
	itemLogger := logger.With(
		logging.Int64(logging.FieldEntryID, job.EntryID),
		logging.String(logging.FieldVideoID, job.VideoID),
	)

	if result.Commit {
		if err := a.Store.Update(ctx, job.Entry()); err != nil {
			report.Failed++
			itemLogger.Error(
				"failed to persist stage result",
				logging.Error(err),
				logging.String(logging.FieldEventType, "item_persist_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			return
		}
	}

	switch result.Outcome {
	case stage.OutcomeSucceeded:
		report.Succeeded++
		itemLogger.Info("item advanced", logging.String("title", job.Label()))
	case stage.OutcomeSkipped:
		report.Skipped++
		itemLogger.Debug("item skipped", logging.String("reason", result.Reason()))
	default:
		report.Failed++
		attrs := []logging.Attr{
			logging.String("title", job.Label()),
			logging.String("reason", result.Reason()),
			logging.Error(result.Err),
		}
		if !services.Retryable(result.Err) {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "fix the input or configuration; the entry is retried every run"))
		}
		logging.WarnWithContext(itemLogger, "item failed", "item_failed", attrs...)
	}
}

func (a *Advancer[W]) logger(ctx context.Context, name queue.Stage) *slog.Logger {
	base := a.Logger
	if base == nil {
		base = logging.NewNop()
	}
	ctx = services.WithStage(ctx, string(name))
	return logging.WithContext(ctx, logging.NewComponentLogger(base, "advancer"))
}
