package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/queue"
	"briefcast/internal/services"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// ErrNotVideoPage is returned when a source lists nested playlists instead of
// downloadable items.
var ErrNotVideoPage = errors.New("not a video page")

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(run services.CommandRunner) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// Client wraps yt-dlp invocations.
type Client struct {
	binary       string
	audioQuality string
	timeout      time.Duration
	run          services.CommandRunner
}

// New constructs a yt-dlp client.
func New(binary, audioQuality string, timeout time.Duration, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	if strings.TrimSpace(audioQuality) == "" {
		audioQuality = "192K"
	}
	client := &Client{
		binary:       binary,
		audioQuality: audioQuality,
		timeout:      timeout,
		run:          services.ExecRunner,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from the [download] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	return New(cfg.Download.YtDlpBinary, cfg.Download.AudioQuality, config.Interval(cfg.Download.TimeoutSeconds), opts...)
}

type info struct {
	Entries      []json.RawMessage `json:"entries"`
	Extractor    string            `json:"extractor"`
	ExtractorKey string            `json:"extractor_key"`
	UploadDate   string            `json:"upload_date"`
	Duration     float64           `json:"duration"`
	Language     string            `json:"language"`
	Title        string            `json:"title"`
	WebpageURL   string            `json:"webpage_url"`
	OriginalURL  string            `json:"original_url"`
	URL          string            `json:"url"`
}

// FetchEntries lists at most limit items of source without downloading.
func (c *Client) FetchEntries(ctx context.Context, source string, limit int) ([]queue.Candidate, error) {
	args := []string{"--dump-single-json", "--skip-download", "--quiet", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-items", "1-"+strconv.Itoa(limit))
	}
	args = append(args, "--", source)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	output, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch entries from %s: %w", source, err)
	}
	return ParseEntries(source, output)
}

// ParseEntries normalizes yt-dlp single-JSON output into candidates. A
// top-level object without entries is a single video. Items lacking every URL
// field are skipped.
func ParseEntries(source string, output []byte) ([]queue.Candidate, error) {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var top info
	if err := json.Unmarshal([]byte(trimmed), &top); err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "parse yt-dlp output", source, err)
	}

	items := []info{top}
	if top.Entries != nil {
		items = items[:0]
		for _, raw := range top.Entries {
			var probe map[string]json.RawMessage
			if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
				continue
			}
			if _, nested := probe["entries"]; nested {
				return nil, fmt.Errorf("%s: %w", source, ErrNotVideoPage)
			}
			var item info
			if err := json.Unmarshal(raw, &item); err != nil {
				continue
			}
			items = append(items, item)
		}
	}

	candidates := make([]queue.Candidate, 0, len(items))
	for _, item := range items {
		webpage := firstNonEmpty(item.WebpageURL, item.OriginalURL, item.URL)
		if webpage == "" {
			continue
		}
		candidates = append(candidates, queue.Candidate{
			VideoID:    queue.RemoteVideoID(webpage),
			WebpageURL: webpage,
			Source:     source,
			Extractor:  firstNonEmpty(item.Extractor, item.ExtractorKey),
			Title:      item.Title,
			UploadDate: item.UploadDate,
			Duration:   int64(item.Duration),
			Language:   item.Language,
		})
	}
	return candidates, nil
}

// DownloadAudio extracts the best audio of url to mp3 using outputTemplate
// (a yt-dlp template ending in ".%(ext)s") and returns the expected mp3 path.
// The caller checks the file exists; yt-dlp can exit 0 without producing it.
func (c *Client) DownloadAudio(ctx context.Context, url, outputTemplate string) (string, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(outputTemplate) == "" {
		return "", services.Wrap(services.ErrValidation, "download", "yt-dlp", "url and output template required", nil)
	}
	args := []string{
		"--quiet", "--no-warnings", "--no-playlist",
		"--format", "bestaudio/best",
		"--user-agent", browserUserAgent,
		"--extract-audio", "--audio-format", "mp3", "--audio-quality", c.audioQuality,
		"--output", outputTemplate,
		"--", url,
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.run(ctx, c.binary, args...); err != nil {
		return "", err
	}
	return strings.Replace(outputTemplate, "%(ext)s", "mp3", 1), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
