package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"briefcast/internal/artifacts"
	"briefcast/internal/language"
	"briefcast/internal/media/ffmpeg"
	"briefcast/internal/services"
	"briefcast/internal/services/whisper"
	"briefcast/internal/stage"
)

const headerRule = "\n" + "- - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - -" + "\n"

// Session transcribes one audio segment at a time.
type Session interface {
	Transcribe(ctx context.Context, segmentPath, language string) (string, error)
	Close() error
}

// SessionFactory opens a Session for worker.
type SessionFactory func(ctx context.Context, worker int) (Session, error)

// WhisperSessions adapts a whisper service to a SessionFactory.
func WhisperSessions(svc *whisper.Service) SessionFactory {
	return func(ctx context.Context, worker int) (Session, error) {
		session, err := svc.NewSession(ctx, worker)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// DurationProber reports an audio file's length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Cutter writes one span of an audio file to a new file.
type Cutter interface {
	Cut(ctx context.Context, input, output string, span ffmpeg.Span) error
}

// WorkerContext is owned by one pool worker for the life of a batch.
type WorkerContext struct {
	Worker  int
	Session Session
}

// Processor transcribes jobs that have been downloaded.
type Processor struct {
	sessions       SessionFactory
	prober         DurationProber
	cutter         Cutter
	layout         artifacts.Layout
	segmentSeconds int
	now            func() time.Time
}

// NewProcessor wires the collaborators. segmentSeconds defaults to 1800.
func NewProcessor(sessions SessionFactory, prober DurationProber, cutter Cutter, layout artifacts.Layout, segmentSeconds int) *Processor {
	if segmentSeconds <= 0 {
		segmentSeconds = 1800
	}
	return &Processor{
		sessions:       sessions,
		prober:         prober,
		cutter:         cutter,
		layout:         layout,
		segmentSeconds: segmentSeconds,
		now:            time.Now,
	}
}

// NewWorker opens the worker's transcription session.
func (p *Processor) NewWorker(ctx context.Context, worker int) (*WorkerContext, error) {
	session, err := p.sessions(ctx, worker)
	if err != nil {
		return nil, fmt.Errorf("open transcription session: %w", err)
	}
	return &WorkerContext{Worker: worker, Session: session}, nil
}

// CloseWorker releases the worker's session.
func (p *Processor) CloseWorker(wc *WorkerContext) {
	if wc != nil && wc.Session != nil {
		_ = wc.Session.Close()
	}
}

// Process transcribes one job.
func (p *Processor) Process(ctx context.Context, wc *WorkerContext, job stage.Job) stage.Result {
	if !job.Downloaded || strings.TrimSpace(job.FilePath) == "" {
		return stage.Failure(job, services.Wrap(services.ErrValidation, "transcribe", "precondition", "entry has no downloaded audio", nil))
	}
	if !artifacts.Exists(job.FilePath) {
		return stage.Failure(job, services.Wrap(services.ErrNotFound, "transcribe", "precondition", "audio file missing: "+job.FilePath, nil))
	}
	if wc == nil || wc.Session == nil {
		return stage.Failure(job, services.Wrap(services.ErrConfiguration, "transcribe", "precondition", "no transcription session", nil))
	}

	if err := p.transcribe(ctx, wc.Session, job); err != nil {
		return stage.Failure(job, err)
	}
	return stage.Success(job.WithTranscribed())
}

func (p *Processor) transcribe(ctx context.Context, session Session, job stage.Job) error {
	id := job.VideoID
	defer os.RemoveAll(p.layout.EntryTemporaryDir(id))

	seconds, err := p.prober.Duration(ctx, job.FilePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.layout.EntryOutputDir(id), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	if err := os.MkdirAll(p.layout.SegmentDir(id), 0o755); err != nil {
		return fmt.Errorf("ensure segment dir: %w", err)
	}

	header := fmt.Sprintf("%s at %s:%s", id, p.now().Format("2006-01-02 15:04:05"), headerRule)
	transcript, err := truncate(p.layout.WhisperPath(id), header)
	if err != nil {
		return err
	}
	defer transcript.Close()
	history, err := truncate(p.layout.HistoryPath(id), header)
	if err != nil {
		return err
	}
	defer history.Close()

	hint := language.WhisperHint(job.Language)
	for _, span := range ffmpeg.Spans(seconds, p.segmentSeconds) {
		segment := p.layout.SegmentPath(id, span.Index)
		if err := p.cutter.Cut(ctx, job.FilePath, segment, span); err != nil {
			return err
		}
		text, err := session.Transcribe(ctx, segment, hint)
		if err != nil {
			return err
		}
		line := text + "\n"
		if _, err := transcript.WriteString(line); err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}
		if _, err := history.WriteString(line); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}
	return errors.Join(transcript.Sync(), history.Sync())
}

func truncate(path, header string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := file.WriteString(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return file, nil
}
