package ffprobe

import (
	"context"
	"errors"
	"testing"

	"briefcast/internal/services"
)

func TestSecondsPrefersContainer(t *testing.T) {
	probe, err := Parse([]byte(`{"streams":[{"codec_type":"audio","duration":"10"}],"format":{"duration":"123.45"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s, ok := probe.Seconds(); !ok || s != 123.45 {
		t.Fatalf("Seconds = %v, %v", s, ok)
	}
}

func TestSecondsFallsBackToAudioStreams(t *testing.T) {
	probe, err := Parse([]byte(`{"streams":[{"codec_type":"video","duration":"90"},{"codec_type":"audio","duration":"61.5"}],"format":{}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s, ok := probe.Seconds(); !ok || s != 61.5 {
		t.Fatalf("Seconds = %v, %v", s, ok)
	}
}

func TestSecondsRejectsGarbage(t *testing.T) {
	probe, err := Parse([]byte(`{"streams":[{"codec_type":"audio","duration":"nope"}],"format":{"duration":"bad"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := probe.Seconds(); ok {
		t.Fatal("expected no usable duration")
	}
}

func TestProberDuration(t *testing.T) {
	var gotArgs []string
	prober := NewProber("", func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return []byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"3600.2"}}`), nil
	})
	seconds, err := prober.Duration(context.Background(), "/audio/a.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if seconds != 3600.2 {
		t.Fatalf("unexpected duration %v", seconds)
	}
	if gotArgs[len(gotArgs)-1] != "/audio/a.mp3" {
		t.Fatalf("path not passed last: %v", gotArgs)
	}
}

func TestProberDurationValidation(t *testing.T) {
	cases := map[string]string{
		"no audio":    `{"streams":[{"codec_type":"video"}],"format":{"duration":"10"}}`,
		"no duration": `{"streams":[{"codec_type":"audio"}],"format":{}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			prober := NewProber("ffprobe", func(context.Context, string, ...string) ([]byte, error) {
				return []byte(payload), nil
			})
			if _, err := prober.Duration(context.Background(), "/audio/a.mp3"); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestProberPropagatesRunnerErrors(t *testing.T) {
	boom := errors.New("exit status 1")
	prober := NewProber("ffprobe", func(context.Context, string, ...string) ([]byte, error) {
		return nil, boom
	})
	if _, err := prober.Duration(context.Background(), "/audio/a.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
}
