// Package feed reads podcast-style RSS and Atom feeds and turns each item
// with an audio enclosure into a queue.Candidate.
//
// Sources are configured as "feed:<url>". Documents are parsed with goquery,
// which tolerates the malformed markup common in hand-rolled feeds.
package feed

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"briefcast/internal/queue"
	"briefcast/internal/services"
)

// Prefix marks a configured source as a feed.
const Prefix = "feed:"

const (
	extractorName = "feed"
	userAgent     = "briefcast/0.1"
	maxFeedBytes  = 16 << 20
)

var cdataExpr = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02",
}

// IsFeedSource reports whether source uses the feed prefix.
func IsFeedSource(source string) bool {
	return strings.HasPrefix(strings.TrimSpace(source), Prefix)
}

// Reader fetches feeds over HTTP.
type Reader struct {
	client *http.Client
}

// NewReader wires an HTTP client; a nil client gets a 30s timeout.
func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reader{client: client}
}

// FetchEntries downloads the feed named by source and returns at most limit
// items, newest first as published.
func (r *Reader) FetchEntries(ctx context.Context, source string, limit int) ([]queue.Candidate, error) {
	feedURL := strings.TrimPrefix(strings.TrimSpace(source), Prefix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "feed", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "feed", "request "+feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "download", "feed", fmt.Sprintf("%s returned %s", feedURL, resp.Status), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "feed", "read body", err)
	}
	return Parse(source, body, limit)
}

// Parse extracts candidates from an RSS or Atom document.
func Parse(source string, body []byte, limit int) ([]queue.Candidate, error) {
	cleaned := cdataExpr.ReplaceAllStringFunc(string(body), func(match string) string {
		inner := cdataExpr.FindStringSubmatch(match)[1]
		return html.EscapeString(inner)
	})
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "feed", "parse document", err)
	}

	language := strings.TrimSpace(doc.Find("channel > language").First().Text())
	if language == "" {
		if lang, ok := doc.Find("feed").First().Attr("xml:lang"); ok {
			language = strings.TrimSpace(lang)
		}
	}

	items := doc.Find("item")
	if items.Length() == 0 {
		items = doc.Find("entry")
	}

	candidates := make([]queue.Candidate, 0, items.Length())
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if limit > 0 && len(candidates) >= limit {
			return false
		}
		candidate, ok := parseItem(source, language, item)
		if ok {
			candidates = append(candidates, candidate)
		}
		return true
	})
	return candidates, nil
}

func parseItem(source, language string, item *goquery.Selection) (queue.Candidate, bool) {
	mediaURL := ""
	if url, ok := item.Find("enclosure").First().Attr("url"); ok {
		mediaURL = strings.TrimSpace(url)
	}
	if mediaURL == "" {
		item.Find("link").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if rel, _ := link.Attr("rel"); rel == "enclosure" {
				mediaURL, _ = link.Attr("href")
				mediaURL = strings.TrimSpace(mediaURL)
				return false
			}
			return true
		})
	}
	if mediaURL == "" {
		return queue.Candidate{}, false
	}

	title := strings.TrimSpace(item.Find("title").First().Text())
	var published, duration string
	item.Find("*").Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "pubdate", "published", "updated":
			if published == "" {
				published = strings.TrimSpace(node.Text())
			}
		case "itunes:duration":
			duration = strings.TrimSpace(node.Text())
		}
	})

	return queue.Candidate{
		VideoID:    queue.RemoteVideoID(mediaURL),
		WebpageURL: mediaURL,
		Source:     source,
		Extractor:  extractorName,
		Title:      title,
		UploadDate: uploadDate(published),
		Duration:   parseDuration(duration),
		Language:   language,
	}, true
}

// uploadDate renders a feed timestamp as YYYYMMDD, the format yt-dlp uses.
func uploadDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC().Format("20060102")
		}
	}
	return ""
}

// parseDuration accepts plain seconds, MM:SS, or HH:MM:SS.
func parseDuration(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	var total int64
	for _, part := range strings.Split(value, ":") {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + int64(n)
	}
	return total
}
