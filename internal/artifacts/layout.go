// Package artifacts names the files each entry produces under the data
// directory. Every artifact is keyed by the entry's video_id.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"briefcast/internal/config"
)

const (
	whisperFile = "whisper.txt"
	historyFile = "history.txt"
	outlineFile = "outline.txt"
	briefFile   = "brief.txt"
	segmentExt  = ".mp3"
)

// Layout resolves artifact paths for one data directory.
type Layout struct {
	AudioDir     string
	OutputDir    string
	TemporaryDir string
}

// NewLayout builds a Layout from configured paths.
func NewLayout(cfg *config.Config) Layout {
	return Layout{
		AudioDir:     cfg.Paths.AudioDir,
		OutputDir:    cfg.Paths.OutputDir,
		TemporaryDir: cfg.Paths.TemporaryDir,
	}
}

// AudioPath is the downloaded or imported audio file. ext includes the dot.
func (l Layout) AudioPath(videoID, ext string) string {
	if ext == "" {
		ext = ".mp3"
	}
	return filepath.Join(l.AudioDir, videoID+strings.ToLower(ext))
}

// AudioTemplate is the yt-dlp output template for videoID.
func (l Layout) AudioTemplate(videoID string) string {
	return filepath.Join(l.AudioDir, videoID+".%(ext)s")
}

// EntryOutputDir holds the text artifacts for videoID.
func (l Layout) EntryOutputDir(videoID string) string {
	return filepath.Join(l.OutputDir, videoID)
}

// WhisperPath is the raw transcript.
func (l Layout) WhisperPath(videoID string) string {
	return filepath.Join(l.EntryOutputDir(videoID), whisperFile)
}

// HistoryPath is the transcript with a provenance header.
func (l Layout) HistoryPath(videoID string) string {
	return filepath.Join(l.EntryOutputDir(videoID), historyFile)
}

// OutlinePath is the outline trace produced from transcript chunks.
func (l Layout) OutlinePath(videoID string) string {
	return filepath.Join(l.EntryOutputDir(videoID), outlineFile)
}

// BriefPath is the final summary.
func (l Layout) BriefPath(videoID string) string {
	return filepath.Join(l.EntryOutputDir(videoID), briefFile)
}

// EntryTemporaryDir is scratch space for videoID.
func (l Layout) EntryTemporaryDir(videoID string) string {
	return filepath.Join(l.TemporaryDir, videoID)
}

// SegmentDir holds split audio segments during transcription.
func (l Layout) SegmentDir(videoID string) string {
	return filepath.Join(l.EntryTemporaryDir(videoID), videoID+"_cut")
}

// SegmentPath is the n-th segment, counting from zero.
func (l Layout) SegmentPath(videoID string, n int) string {
	return filepath.Join(l.SegmentDir(videoID), fmt.Sprintf("V_%d%s", n, segmentExt))
}

// ReadText returns the trimmed content of an artifact. A missing file yields
// "" without error.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
