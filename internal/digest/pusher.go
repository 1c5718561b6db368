package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"briefcast/internal/artifacts"
	"briefcast/internal/briefindex"
	"briefcast/internal/language"
	"briefcast/internal/logging"
	"briefcast/internal/notifications"
	"briefcast/internal/services"
	"briefcast/internal/services/llm"
	"briefcast/internal/stage"
)

// DefaultTitle is used for the message title and tags when none is configured.
const DefaultTitle = "Briefing Summary"

// Translator renders text in another language.
type Translator interface {
	Translate(ctx context.Context, text, language, model string) (llm.Completion, error)
}

// Indexer records pushed briefs for later search.
type Indexer interface {
	Add(docs ...briefindex.Document) error
}

// Options configures a Pusher.
type Options struct {
	ReadLanguage   string
	TranslateModel string
	Title          string
	Layout         artifacts.Layout
	Indexer        Indexer
	Logger         *slog.Logger
	Now            func() time.Time
}

// Pusher sends the digest for one batch of summarized entries.
type Pusher struct {
	sender     notifications.Service
	translator Translator
	opts       Options
	logger     *slog.Logger
}

// NewPusher wires the notification sink and the optional translator.
func NewPusher(sender notifications.Service, translator Translator, opts Options) *Pusher {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pusher{
		sender:     sender,
		translator: translator,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "pusher"),
	}
}

// Process pushes a single job as its own digest.
func (p *Pusher) Process(ctx context.Context, _ struct{}, job stage.Job) stage.Result {
	return p.ProcessBatch(ctx, []stage.Job{job})[0]
}

type part struct {
	index int
	job   stage.Job
	brief string
}

// ProcessBatch implements workflow.BatchProcessor.
func (p *Pusher) ProcessBatch(ctx context.Context, jobs []stage.Job) []stage.Result {
	results := make([]stage.Result, len(jobs))
	var parts []part
	for i, job := range jobs {
		brief, err := p.readBrief(job)
		switch {
		case err != nil:
			results[i] = stage.Failure(job, err)
		case brief == "":
			results[i] = stage.Skipped(job, "brief is empty")
		default:
			parts = append(parts, part{index: i, job: job, brief: brief})
		}
	}
	if len(parts) == 0 {
		return results
	}

	rendered := make([]string, 0, len(parts))
	for _, pt := range parts {
		rendered = append(rendered, render(pt.job, p.translate(ctx, pt.job, pt.brief)))
	}

	msg := notifications.Message{
		Title: p.opts.Title,
		Body:  strings.Join(rendered, "\n\n"),
		Tags:  []string{p.opts.Title},
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		for _, pt := range parts {
			results[pt.index] = stage.Failure(pt.job, err)
		}
		return results
	}

	p.logger.Info("digest sent",
		logging.String(logging.FieldEventType, "digest_sent"),
		logging.String("provider", p.sender.Provider()),
		logging.Int("parts", len(parts)),
	)
	for _, pt := range parts {
		results[pt.index] = stage.Success(pt.job.WithPushed())
	}
	p.index(parts)
	return results
}

func (p *Pusher) readBrief(job stage.Job) (string, error) {
	if !job.Summarized {
		return "", services.Wrap(services.ErrValidation, "push", "precondition", "entry is not summarized", nil)
	}
	data, err := os.ReadFile(p.opts.Layout.BriefPath(job.VideoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read brief: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// translate returns brief in the reading language. A failed translation
// falls back to the untranslated brief.
func (p *Pusher) translate(ctx context.Context, job stage.Job, brief string) string {
	target := strings.TrimSpace(p.opts.ReadLanguage)
	if target == "" || language.IsEnglish(target) || p.translator == nil {
		return brief
	}
	completion, err := p.translator.Translate(ctx, brief, language.DisplayName(target), p.opts.TranslateModel)
	if err != nil || strings.TrimSpace(completion.Content) == "" {
		logging.WarnWithContext(p.logger, "translation failed; sending original", "translate_failed",
			logging.String(logging.FieldVideoID, job.VideoID),
			logging.String("language", target),
			logging.Error(err),
		)
		return brief
	}
	return completion.Content
}

func (p *Pusher) index(parts []part) {
	if p.opts.Indexer == nil {
		return
	}
	now := p.opts.Now()
	docs := make([]briefindex.Document, 0, len(parts))
	for _, pt := range parts {
		docs = append(docs, briefindex.Document{
			VideoID:    pt.job.VideoID,
			Title:      pt.job.Title,
			Source:     pt.job.Source,
			Extractor:  pt.job.Extractor,
			UploadDate: pt.job.UploadDate,
			Brief:      pt.brief,
			PushedAt:   now,
		})
	}
	if err := p.opts.Indexer.Add(docs...); err != nil {
		logging.WarnWithContext(p.logger, "brief index update failed", "index_failed", logging.Error(err))
	}
}

func render(job stage.Job, text string) string {
	return fmt.Sprintf("# %s %s\n%s\n%s\n%s", job.UploadDate, job.Extractor, job.Source, job.Title, text)
}
