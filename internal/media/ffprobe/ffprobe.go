package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"briefcast/internal/services"
)

// Probe is the subset of `ffprobe -show_format -show_streams` output the
// transcription stage reads.
type Probe struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Duration   string `json:"duration"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Prober runs ffprobe through a CommandRunner.
type Prober struct {
	Binary string
	Run    services.CommandRunner
}

// NewProber returns a Prober for binary, defaulting to "ffprobe" and the
// os/exec runner.
func NewProber(binary string, run services.CommandRunner) *Prober {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if run == nil {
		run = services.ExecRunner
	}
	return &Prober{Binary: binary, Run: run}
}

// Inspect executes ffprobe against path.
func (p *Prober) Inspect(ctx context.Context, path string) (Probe, error) {
	if strings.TrimSpace(path) == "" {
		return Probe{}, errors.New("ffprobe: empty path")
	}
	out, err := p.Run(ctx, p.Binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(out)
}

// Duration returns the playable length of path in seconds. Files without an
// audio stream or a positive duration fail validation.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	probe, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	if !probe.HasAudio() {
		return 0, services.Wrap(services.ErrValidation, "transcribe", "ffprobe", "no audio stream in "+path, nil)
	}
	seconds, ok := probe.Seconds()
	if !ok {
		return 0, services.Wrap(services.ErrValidation, "transcribe", "ffprobe", "no duration for "+path, nil)
	}
	return seconds, nil
}

// Parse decodes ffprobe JSON output.
func Parse(out []byte) (Probe, error) {
	var probe Probe
	if err := json.Unmarshal(out, &probe); err != nil {
		return Probe{}, fmt.Errorf("ffprobe output: %w", err)
	}
	return probe, nil
}

// HasAudio reports whether any stream is audio.
func (p Probe) HasAudio() bool {
	for _, s := range p.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			return true
		}
	}
	return false
}

// Seconds is the container duration, falling back to the longest audio
// stream for containers that omit it. ok is false when neither parses to a
// positive number.
func (p Probe) Seconds() (seconds float64, ok bool) {
	if v, err := strconv.ParseFloat(strings.TrimSpace(p.Format.Duration), 64); err == nil && v > 0 {
		return v, true
	}
	for _, s := range p.Streams {
		if !strings.EqualFold(s.CodecType, "audio") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s.Duration), 64); err == nil && v > seconds {
			seconds = v
		}
	}
	return seconds, seconds > 0
}
