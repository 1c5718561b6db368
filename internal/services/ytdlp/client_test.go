package ytdlp_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/services/ytdlp"
)

const playlistJSON = `{
  "title": "Channel",
  "entries": [
    {"webpage_url": "https://example.com/watch?v=a", "extractor": "youtube", "title": "A", "upload_date": "20240102", "duration": 61.9, "language": "en"},
    null,
    {"original_url": "https://example.com/watch?v=b", "extractor_key": "Youtube", "title": "B"},
    {"title": "no url"}
  ]
}`

func TestParseEntriesNormalizesPlaylist(t *testing.T) {
	got, err := ytdlp.ParseEntries("https://example.com/@chan", []byte(playlistJSON))
	if err != nil {
		t.Fatalf("ParseEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	first := got[0]
	if first.WebpageURL != "https://example.com/watch?v=a" || first.Extractor != "youtube" || first.Duration != 61 || first.Language != "en" {
		t.Fatalf("unexpected first candidate %+v", first)
	}
	if first.VideoID != queue.RemoteVideoID(first.WebpageURL) || first.Source != "https://example.com/@chan" {
		t.Fatalf("unexpected identity %+v", first)
	}
	if got[1].WebpageURL != "https://example.com/watch?v=b" || got[1].Extractor != "Youtube" {
		t.Fatalf("fallback fields not used: %+v", got[1])
	}
}

func TestParseEntriesSingleVideo(t *testing.T) {
	got, err := ytdlp.ParseEntries("https://example.com/watch?v=z", []byte(`{"webpage_url":"https://example.com/watch?v=z","title":"Z"}`))
	if err != nil {
		t.Fatalf("ParseEntries: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Z" {
		t.Fatalf("unexpected candidates %+v", got)
	}
}

func TestParseEntriesRejectsNestedPlaylists(t *testing.T) {
	_, err := ytdlp.ParseEntries("https://example.com/@chan", []byte(`{"entries":[{"title":"Videos","entries":[]}]}`))
	if !errors.Is(err, ytdlp.ErrNotVideoPage) {
		t.Fatalf("expected ErrNotVideoPage, got %v", err)
	}
}

func TestFetchEntriesPassesLimit(t *testing.T) {
	var args []string
	client := ytdlp.New("yt-dlp", "", 0, ytdlp.WithRunner(func(_ context.Context, _ string, a ...string) ([]byte, error) {
		args = a
		return []byte(playlistJSON), nil
	}))
	got, err := client.FetchEntries(context.Background(), "https://example.com/@chan", 3)
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--playlist-items 1-3") || !strings.HasSuffix(joined, "-- https://example.com/@chan") {
		t.Fatalf("unexpected args %q", joined)
	}
}

func TestDownloadAudioReturnsMP3Path(t *testing.T) {
	var args []string
	client := ytdlp.New("", "192K", 0, ytdlp.WithRunner(func(_ context.Context, name string, a ...string) ([]byte, error) {
		if name != "yt-dlp" {
			t.Fatalf("unexpected binary %q", name)
		}
		args = a
		return nil, nil
	}))
	path, err := client.DownloadAudio(context.Background(), "https://example.com/watch?v=a", "/data/audio/abc.%(ext)s")
	if err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	if path != "/data/audio/abc.mp3" {
		t.Fatalf("unexpected path %q", path)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--format bestaudio/best") || !strings.Contains(joined, "--audio-quality 192K") {
		t.Fatalf("unexpected args %q", joined)
	}
}

func TestDownloadAudioPropagatesToolErrors(t *testing.T) {
	client := ytdlp.New("yt-dlp", "", 0, ytdlp.WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, services.Wrap(services.ErrExternalTool, "", "yt-dlp", "HTTP Error 403", nil)
	}))
	_, err := client.DownloadAudio(context.Background(), "https://example.com/watch?v=a", "/tmp/x.%(ext)s")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
