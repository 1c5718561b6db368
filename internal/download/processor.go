package download

import (
	"context"
	"time"

	"briefcast/internal/artifacts"
	"briefcast/internal/services"
	"briefcast/internal/stage"
)

// ReasonMP3Missing is the persisted reason when yt-dlp exits cleanly without
// producing the mp3.
const ReasonMP3Missing = "mp3 not created"

// AudioDownloader extracts the audio of one page.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, url, outputTemplate string) (string, error)
}

// Processor downloads audio for one job at a time. It needs no per-worker
// state, so its worker context is the empty struct.
type Processor struct {
	downloader AudioDownloader
	layout     artifacts.Layout
	now        func() time.Time
}

// NewProcessor wires the downloader and artifact layout.
func NewProcessor(downloader AudioDownloader, layout artifacts.Layout) *Processor {
	return &Processor{downloader: downloader, layout: layout, now: time.Now}
}

// WithClock overrides the timestamp source for downloaded_at.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	if now != nil {
		p.now = now
	}
	return p
}

// Process implements workflow.Processor.
func (p *Processor) Process(ctx context.Context, _ struct{}, job stage.Job) stage.Result {
	if job.Downloaded {
		return stage.Skipped(job, "already downloaded")
	}
	path, err := p.downloader.DownloadAudio(ctx, job.WebpageURL, p.layout.AudioTemplate(job.VideoID))
	if err != nil {
		return stage.FailureWithState(job.WithDownloadError(services.Describe(err)), err)
	}
	if path == "" {
		path = p.layout.AudioPath(job.VideoID, ".mp3")
	}
	if !artifacts.Exists(path) {
		err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", ReasonMP3Missing, nil)
		return stage.FailureWithState(job.WithDownloadError(ReasonMP3Missing), err)
	}
	return stage.Success(job.WithDownload(path, p.now()))
}
