// Package ffmpeg cuts audio into fixed-length mp3 segments for transcription.
package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"briefcast/internal/services"
)

// Span is one [Start, End) cut in seconds.
type Span struct {
	Index int
	Start int
	End   int
}

// Spans divides total seconds into consecutive cuts of at most segment
// seconds. The fractional tail of total is dropped; a file shorter than one
// second still yields a single span.
func Spans(total float64, segment int) []Span {
	if segment <= 0 {
		segment = 1800
	}
	whole := int(math.Floor(total))
	if whole <= 0 {
		return []Span{{Index: 0, Start: 0, End: 1}}
	}
	spans := make([]Span, 0, whole/segment+1)
	for start := 0; start < whole; start += segment {
		end := min(start+segment, whole)
		spans = append(spans, Span{Index: len(spans), Start: start, End: end})
	}
	return spans
}

// Splitter runs ffmpeg through a CommandRunner.
type Splitter struct {
	Binary string
	Run    services.CommandRunner
}

// NewSplitter returns a Splitter for binary, defaulting to "ffmpeg" and the
// os/exec runner.
func NewSplitter(binary string, run services.CommandRunner) *Splitter {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if run == nil {
		run = services.ExecRunner
	}
	return &Splitter{Binary: binary, Run: run}
}

// Cut writes span of input to output as mp3, overwriting any previous file.
func (s *Splitter) Cut(ctx context.Context, input, output string, span Span) error {
	args := []string{
		"-nostdin", "-nostats", "-loglevel", "error", "-y",
		"-ss", strconv.Itoa(span.Start),
		"-t", strconv.Itoa(span.End - span.Start),
		"-i", input,
		"-vn", "-acodec", "libmp3lame",
		output,
	}
	if _, err := s.Run(ctx, s.Binary, args...); err != nil {
		return fmt.Errorf("cut segment %d of %s: %w", span.Index, input, err)
	}
	return nil
}
