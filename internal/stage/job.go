package stage

import (
	"strings"
	"time"

	"briefcast/internal/queue"
)

// Job is a value snapshot of one entry. The With* methods return modified
// copies and leave the receiver untouched.
type Job struct {
	EntryID       int64
	VideoID       string
	WebpageURL    string
	Source        string
	Extractor     string
	Title         string
	UploadDate    string
	Duration      int64
	Language      string
	InsertedAt    time.Time
	DownloadedAt  time.Time
	Downloaded    bool
	Transcribed   bool
	Summarized    bool
	Pushed        bool
	FilePath      string
	DownloadError string
}

// NewJob snapshots an entry.
func NewJob(e *queue.Entry) Job {
	if e == nil {
		return Job{}
	}
	return Job{
		EntryID:       e.ID,
		VideoID:       e.VideoID,
		WebpageURL:    e.WebpageURL,
		Source:        e.Source,
		Extractor:     e.Extractor,
		Title:         e.Title,
		UploadDate:    e.UploadDate,
		Duration:      e.Duration,
		Language:      e.Language,
		InsertedAt:    e.InsertedAt,
		DownloadedAt:  e.DownloadedAt,
		Downloaded:    e.Downloaded,
		Transcribed:   e.Transcribed,
		Summarized:    e.Summarized,
		Pushed:        e.Pushed,
		FilePath:      e.FilePath,
		DownloadError: e.DownloadError,
	}
}

// Entry converts the job back into a store entry for persistence.
func (j Job) Entry() *queue.Entry {
	return &queue.Entry{
		ID:            j.EntryID,
		VideoID:       j.VideoID,
		WebpageURL:    j.WebpageURL,
		Source:        j.Source,
		Extractor:     j.Extractor,
		Title:         j.Title,
		UploadDate:    j.UploadDate,
		Duration:      j.Duration,
		Language:      j.Language,
		InsertedAt:    j.InsertedAt,
		DownloadedAt:  j.DownloadedAt,
		Downloaded:    j.Downloaded,
		Transcribed:   j.Transcribed,
		Summarized:    j.Summarized,
		Pushed:        j.Pushed,
		FilePath:      j.FilePath,
		DownloadError: j.DownloadError,
	}
}

// WithDownload marks the job downloaded to path and clears any prior error.
func (j Job) WithDownload(path string, at time.Time) Job {
	j.Downloaded = true
	j.DownloadedAt = at
	j.FilePath = path
	j.DownloadError = ""
	return j
}

// WithDownloadError records why the latest download attempt failed.
func (j Job) WithDownloadError(reason string) Job {
	j.DownloadError = strings.TrimSpace(reason)
	return j
}

// WithTranscribed marks the transcript as written.
func (j Job) WithTranscribed() Job {
	j.Transcribed = true
	return j
}

// WithSummarized marks the brief as written.
func (j Job) WithSummarized() Job {
	j.Summarized = true
	return j
}

// WithPushed marks the brief as delivered.
func (j Job) WithPushed() Job {
	j.Pushed = true
	return j
}

// Label returns a human-readable name for logs.
func (j Job) Label() string {
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}
	if j.VideoID != "" {
		return j.VideoID
	}
	return j.WebpageURL
}
