package queue

import (
	"fmt"
	"strings"
	"time"
)

// Stage names a pipeline step that has a persisted completion flag.
type Stage string

const (
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
	StagePush       Stage = "push"
)

// Stages lists the flagged stages in pipeline order.
var Stages = []Stage{StageDownload, StageTranscribe, StageSummarize, StagePush}

// ParseStage resolves a stage name as typed on the command line.
func ParseStage(value string) (Stage, error) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range Stages {
		if stage == normalized {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", value)
}

// Entry is one unit of work tracked through the pipeline.
type Entry struct {
	ID            int64
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

// Candidate is a discovered item that has not been stored yet.
type Candidate struct {
	VideoID    string
	WebpageURL string
	Source     string
	Extractor  string
	Title      string
	UploadDate string
	Duration   int64
	Language   string
}

// Filter narrows a stage query. A Limit of zero or less means unbounded.
type Filter struct {
	Source string
	Limit  int
}

// Done reports whether the entry's flag for stage is set.
func (e *Entry) Done(stage Stage) bool {
	if e == nil {
		return false
	}
	switch stage {
	case StageDownload:
		return e.Downloaded
	case StageTranscribe:
		return e.Transcribed
	case StageSummarize:
		return e.Summarized
	case StagePush:
		return e.Pushed
	default:
		return false
	}
}

// Complete reports whether every stage flag is set.
func (e *Entry) Complete() bool {
	return e != nil && e.Downloaded && e.Transcribed && e.Summarized && e.Pushed
}

// Pending reports whether no stage flag is set yet.
func (e *Entry) Pending() bool {
	return e != nil && !e.Downloaded && !e.Transcribed && !e.Summarized && !e.Pushed
}

// NextStage returns the first stage whose flag is unset, or "" when complete.
func (e *Entry) NextStage() Stage {
	for _, stage := range Stages {
		if !e.Done(stage) {
			return stage
		}
	}
	return ""
}

// IsLocal reports whether the entry was imported from the audio directory.
func (e *Entry) IsLocal() bool {
	return e != nil && e.Source == LocalSource
}

// checkStageOrder rejects flag combinations where a stage is set without its
// predecessor.
func (e *Entry) checkStageOrder() error {
	switch {
	case e.Transcribed && !e.Downloaded:
		return fmt.Errorf("%w: entry %d transcribed before download", ErrStageOrder, e.ID)
	case e.Summarized && !e.Transcribed:
		return fmt.Errorf("%w: entry %d summarized before transcription", ErrStageOrder, e.ID)
	case e.Pushed && !e.Summarized:
		return fmt.Errorf("%w: entry %d pushed before summary", ErrStageOrder, e.ID)
	}
	return nil
}

// Stats holds per-stage entry counts.
type Stats struct {
	Total        int
	Pending      int
	Downloaded   int
	Transcribed  int
	Summarized   int
	Pushed       int
	DownloadErrs int
	BySource     map[string]int
}

// Waiting returns how many entries are queued for stage, i.e. have the
// predecessor flag set but not the stage's own flag.
func (s Stats) Waiting(stage Stage) int {
	switch stage {
	case StageDownload:
		return s.Total - s.Downloaded
	case StageTranscribe:
		return s.Downloaded - s.Transcribed
	case StageSummarize:
		return s.Transcribed - s.Summarized
	case StagePush:
		return s.Summarized - s.Pushed
	default:
		return 0
	}
}
