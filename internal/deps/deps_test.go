package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "yt-dlp")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := Resolve(
		Binary{Name: "yt-dlp", Command: present},
		Binary{Name: "ffmpeg", Command: "clearly-not-present-binary"},
		Binary{Name: "extra", Command: "also-not-present-binary", Optional: true},
		Binary{Name: "whisper", Command: "  "},
	)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !results[0].Found() || results[0].Detail() != present {
		t.Fatalf("expected yt-dlp to resolve, got %#v", results[0])
	}
	if results[1].Found() || results[1].Detail() == "" {
		t.Fatalf("expected missing binary to carry detail, got %#v", results[1])
	}
	if !errors.Is(results[3].Err, ErrNotConfigured) {
		t.Fatalf("blank command err = %v", results[3].Err)
	}

	missing := Missing(results)
	if len(missing) != 2 || missing[0].Name != "ffmpeg" || missing[1].Name != "whisper" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}
