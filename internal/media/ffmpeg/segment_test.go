package ffmpeg

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"briefcast/internal/services"
)

func TestSpans(t *testing.T) {
	tests := []struct {
		name    string
		total   float64
		segment int
		want    []Span
	}{
		{name: "single", total: 120.7, segment: 1800, want: []Span{{0, 0, 120}}},
		{name: "exact", total: 3600, segment: 1800, want: []Span{{0, 0, 1800}, {1, 1800, 3600}}},
		{name: "tail", total: 4000.2, segment: 1800, want: []Span{{0, 0, 1800}, {1, 1800, 3600}, {2, 3600, 4000}}},
		{name: "sub second", total: 0.4, segment: 1800, want: []Span{{0, 0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Spans(tt.total, tt.segment)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Spans(%v, %d) = %v, want %v", tt.total, tt.segment, got, tt.want)
			}
		})
	}
}

func TestCutPassesOffsets(t *testing.T) {
	var got string
	splitter := NewSplitter("", func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = name + " " + strings.Join(args, " ")
		return nil, nil
	})
	if err := splitter.Cut(context.Background(), "in.mp3", "V_1.mp3", Span{Index: 1, Start: 1800, End: 3600}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if !strings.HasPrefix(got, "ffmpeg ") || !strings.Contains(got, "-ss 1800 -t 1800 -i in.mp3") || !strings.HasSuffix(got, "V_1.mp3") {
		t.Fatalf("unexpected command %q", got)
	}
}

func TestCutWrapsFailure(t *testing.T) {
	splitter := NewSplitter("ffmpeg", func(context.Context, string, ...string) ([]byte, error) {
		return nil, services.Wrap(services.ErrExternalTool, "", "ffmpeg", "boom", nil)
	})
	err := splitter.Cut(context.Background(), "in.mp3", "out.mp3", Span{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
