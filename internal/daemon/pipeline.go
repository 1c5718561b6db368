package daemon

import (
	"errors"
	"fmt"
	"log/slog"

	"briefcast/internal/artifacts"
	"briefcast/internal/briefindex"
	"briefcast/internal/config"
	"briefcast/internal/digest"
	"briefcast/internal/download"
	"briefcast/internal/logging"
	"briefcast/internal/media/ffmpeg"
	"briefcast/internal/media/ffprobe"
	"briefcast/internal/notifications"
	"briefcast/internal/queue"
	"briefcast/internal/retention"
	"briefcast/internal/services/feed"
	"briefcast/internal/services/llm"
	"briefcast/internal/services/whisper"
	"briefcast/internal/services/ytdlp"
	"briefcast/internal/stablefile"
	"briefcast/internal/summarization"
	"briefcast/internal/transcription"
	"briefcast/internal/workflow"
)

// BuildOptions tunes pipeline assembly.
type BuildOptions struct {
	// DryRun makes the retention sweeper report without deleting.
	DryRun bool
	// ManagerOptions are forwarded to workflow.NewManager.
	ManagerOptions []workflow.ManagerOption
}

// Pipeline owns every long-lived collaborator of one briefcast process.
type Pipeline struct {
	Config   *config.Config
	Store    *queue.Store
	Index    *briefindex.Index
	Detector *stablefile.Detector
	Sweeper  *retention.Sweeper
	Notifier notifications.Service
	Manager  *workflow.Manager
}

// Build opens the store and index and wires the stages. Callers must Close
// the pipeline.
func Build(cfg *config.Config, logger *slog.Logger, opts BuildOptions) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	prompts, err := config.LoadPrompts(cfg.Paths.PromptDir)
	if err != nil {
		return nil, err
	}
	policies, err := retention.PoliciesFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Config: cfg}
	p.Store, err = queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	p.Index, err = briefindex.Open(cfg.Paths.IndexDir)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Detector, err = stablefile.New(stablefile.OptionsFromConfig(cfg), p.Store, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	layout := artifacts.NewLayout(cfg)
	ytdlpClient := ytdlp.NewFromConfig(cfg)
	llmClient := llm.NewClient(llm.ConfigFromApp(cfg))
	p.Notifier = notifications.NewService(cfg)

	p.Sweeper = retention.New(p.Store, retention.Options{
		Layout:       layout,
		Policies:     policies,
		StalePending: config.Hours(cfg.Retention.StalePendingHours),
		Protected:    p.Detector.PendingPaths,
		Index:        p.Index,
		DryRun:       opts.DryRun,
		Logger:       logger,
	})

	stages := workflow.StageSet{
		Fetcher: download.NewFetcher(
			download.Router{Default: ytdlpClient, Feeds: feed.NewReader(nil)},
			p.Store, cfg.Sources.EntriesLimit, logger,
		),
		Downloader: download.NewProcessor(ytdlpClient, layout),
		Importer:   p.Detector,
		Transcriber: transcription.NewProcessor(
			transcription.WhisperSessions(whisper.NewService(whisper.ConfigFromApp(cfg))),
			ffprobe.NewProber(cfg.Transcription.FFprobeBinary, nil),
			ffmpeg.NewSplitter(cfg.Transcription.FFmpegBinary, nil),
			layout,
			cfg.Transcription.SegmentSeconds,
		),
		Summarizer: summarization.NewProcessor(llmClient, prompts, summarization.Options{
			Model:         cfg.LLM.SummarizeModel,
			CompressLevel: cfg.LLM.CompressLevel,
			Layout:        layout,
			Logger:        logger,
		}),
		Pusher: digest.NewPusher(p.Notifier, llmClient, digest.Options{
			ReadLanguage:   cfg.LLM.ReadLanguage,
			TranslateModel: cfg.LLM.TranslateModel,
			Title:          cfg.Notifications.Title,
			Layout:         layout,
			Indexer:        p.Index,
			Logger:         logger,
		}),
		Retention: p.Sweeper,
	}

	p.Manager, err = workflow.NewManager(cfg, p.Store, stages, logger, opts.ManagerOptions...)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	return p, nil
}

// Close releases the index and the store.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Index != nil {
		errs = append(errs, p.Index.Close())
	}
	if p.Store != nil {
		errs = append(errs, p.Store.Close())
	}
	return errors.Join(errs...)
}
