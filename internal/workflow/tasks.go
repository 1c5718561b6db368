package workflow

import (
	"context"
	"errors"

	"briefcast/internal/logging"
	"briefcast/internal/queue"
	"briefcast/internal/transcription"
)

// Download fetches every configured source, then downloads that source's
// pending entries one at a time. A failing source is logged and skipped.
func (m *Manager) Download(ctx context.Context) error {
	var errs []error
	for _, source := range m.cfg.Sources.URLs {
		if ctx.Err() != nil {
			break
		}
		logger := m.logger.With(logging.String("source", source))

		if m.stages.Fetcher != nil {
			_, err := m.stages.Fetcher.Fetch(ctx, source)
			m.notify(StageEvent{Task: TaskDownload, Step: "fetch " + source, Err: err})
			if err != nil {
				logging.WarnWithContext(logger, "source fetch failed", "source_fetch_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the source URL and yt-dlp version"),
				)
			}
		}

		if m.stages.Downloader != nil {
			adv := &Advancer[struct{}]{
				Store:     m.store,
				Processor: m.stages.Downloader,
				Limit:     m.cfg.Workflow.UpdateLimit,
				PoolSize:  1,
				Logger:    m.logger,
			}
			if err := m.advance(ctx, TaskDownload, "download "+source, func() (Report, error) {
				return adv.Advance(ctx, StageBatch{Store: m.store, Name: queue.StageDownload, Source: source})
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Process imports stable local files, transcribes and summarizes waiting
// entries, and removes orphaned artifacts.
func (m *Manager) Process(ctx context.Context) error {
	var errs []error

	if m.stages.Importer != nil {
		report, err := m.stages.Importer.Sweep(ctx)
		m.notify(StageEvent{Task: TaskProcess, Step: "import", Err: err})
		if err != nil {
			errs = append(errs, err)
		} else if len(report.Imported) > 0 {
			m.logger.Info("imported local files", logging.Int("imported", len(report.Imported)))
		}
	}

	if m.stages.Transcriber != nil {
		adv := &Advancer[*transcription.WorkerContext]{
			Store:     m.store,
			Processor: m.stages.Transcriber,
			Limit:     m.cfg.Workflow.TranscribeLimit,
			PoolSize:  m.cfg.Workflow.PoolSize,
			Logger:    m.logger,
		}
		if err := m.advance(ctx, TaskProcess, "transcribe", func() (Report, error) {
			return adv.Advance(ctx, StageBatch{Store: m.store, Name: queue.StageTranscribe})
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if m.stages.Summarizer != nil {
		adv := &Advancer[struct{}]{
			Store:     m.store,
			Processor: m.stages.Summarizer,
			Limit:     m.cfg.Workflow.SummarizeLimit,
			PoolSize:  m.cfg.Workflow.PoolSize,
			Logger:    m.logger,
		}
		if err := m.advance(ctx, TaskProcess, "summarize", func() (Report, error) {
			return adv.Advance(ctx, StageBatch{Store: m.store, Name: queue.StageSummarize})
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if m.stages.Retention != nil {
		_, err := m.stages.Retention.Reconcile(ctx)
		m.notify(StageEvent{Task: TaskProcess, Step: "reconcile", Err: err})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Push sends the digest of summarized entries, then applies retention.
func (m *Manager) Push(ctx context.Context) error {
	var errs []error
	if m.stages.Pusher != nil {
		adv := &Advancer[struct{}]{
			Store:     m.store,
			Processor: m.stages.Pusher,
			Limit:     m.cfg.Workflow.PushLimit,
			PoolSize:  1,
			Logger:    m.logger,
		}
		if err := m.advance(ctx, TaskPush, "push", func() (Report, error) {
			return adv.Advance(ctx, StageBatch{Store: m.store, Name: queue.StagePush})
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.prune(ctx, TaskPush); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Sweep applies retention and reconciles artifacts.
func (m *Manager) Sweep(ctx context.Context) error {
	var errs []error
	if err := m.prune(ctx, TaskSweep); err != nil {
		errs = append(errs, err)
	}
	if m.stages.Retention != nil {
		_, err := m.stages.Retention.Reconcile(ctx)
		m.notify(StageEvent{Task: TaskSweep, Step: "reconcile", Err: err})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) prune(ctx context.Context, task string) error {
	if m.stages.Retention == nil {
		return nil
	}
	_, err := m.stages.Retention.Prune(ctx)
	m.notify(StageEvent{Task: task, Step: "retention", Err: err})
	return err
}

func (m *Manager) advance(ctx context.Context, task, step string, run func() (Report, error)) error {
	report, err := run()
	if err == nil {
		m.recordReport(report)
	}
	m.notify(StageEvent{Task: task, Step: step, Report: report, Err: err})
	return err
}
