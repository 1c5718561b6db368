package download_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"briefcast/internal/artifacts"
	"briefcast/internal/download"
	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/testsupport"
	"briefcast/internal/workflow"
)

type fakeDownloader struct {
	calls   int
	fail    error
	produce bool
}

func (f *fakeDownloader) DownloadAudio(_ context.Context, _ string, template string) (string, error) {
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	path := strings.Replace(template, "%(ext)s", "mp3", 1)
	if f.produce {
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			return "", err
		}
	}
	return path, nil
}

type fakeReader struct {
	candidates []queue.Candidate
}

func (f fakeReader) FetchEntries(context.Context, string, int) ([]queue.Candidate, error) {
	return f.candidates, nil
}

func advance(t *testing.T, store *queue.Store, proc *download.Processor, source string) workflow.Report {
	t.Helper()
	adv := &workflow.Advancer[struct{}]{Store: store, Processor: proc, Limit: 3, PoolSize: 1}
	report, err := adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageDownload, Source: source})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	return report
}

func TestDownloadRetryIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.InsertEntry(t, store, "chan", "https://example.com/v1")

	downloader := &fakeDownloader{fail: services.Wrap(services.ErrExternalTool, "", "yt-dlp", "HTTP Error 403", nil)}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	proc := download.NewProcessor(downloader, artifacts.NewLayout(cfg)).WithClock(func() time.Time { return at })

	report := advance(t, store, proc, "chan")
	if report.Failed != 1 || report.Succeeded != 0 {
		t.Fatalf("unexpected first report %+v", report)
	}
	stored, _ := store.Get(context.Background(), entry.ID)
	if stored.Downloaded || !strings.HasPrefix(stored.DownloadError, "ExternalTool: ") {
		t.Fatalf("failure not persisted: %+v", stored)
	}

	downloader.fail = nil
	downloader.produce = true
	report = advance(t, store, proc, "chan")
	if report.Succeeded != 1 {
		t.Fatalf("unexpected retry report %+v", report)
	}
	report = advance(t, store, proc, "chan")
	if report.Attempted != 0 {
		t.Fatalf("downloaded entry picked again: %+v", report)
	}

	stored, _ = store.Get(context.Background(), entry.ID)
	if !stored.Downloaded || stored.DownloadError != "" || !stored.DownloadedAt.Equal(at) {
		t.Fatalf("retry did not settle state: %+v", stored)
	}
	if stored.FilePath != artifacts.NewLayout(cfg).AudioPath(stored.VideoID, ".mp3") {
		t.Fatalf("unexpected file path %q", stored.FilePath)
	}
	if downloader.calls != 2 {
		t.Fatalf("expected 2 download attempts, got %d", downloader.calls)
	}
	all, err := store.List(context.Background(), queue.Filter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected a single row after retry, got %d (err=%v)", len(all), err)
	}
}

func TestDownloadWithoutMP3RecordsReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.InsertEntry(t, store, "chan", "https://example.com/v2")

	proc := download.NewProcessor(&fakeDownloader{produce: false}, artifacts.NewLayout(cfg))
	report := advance(t, store, proc, "chan")
	if report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := store.Get(context.Background(), entry.ID)
	if stored.DownloadError != download.ReasonMP3Missing || stored.Downloaded {
		t.Fatalf("unexpected entry %+v", stored)
	}
}

func TestDownloadOnlyTouchesRequestedSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.InsertEntry(t, store, "a", "https://example.com/a1")
	other := testsupport.InsertEntry(t, store, "b", "https://example.com/b1")

	proc := download.NewProcessor(&fakeDownloader{produce: true}, artifacts.NewLayout(cfg))
	if report := advance(t, store, proc, "a"); report.Succeeded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := store.Get(context.Background(), other.ID)
	if stored.Downloaded {
		t.Fatal("entry from another source was downloaded")
	}
}

func TestFetcherCountsKnownEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reader := fakeReader{candidates: []queue.Candidate{
		{WebpageURL: "https://example.com/1", Title: "one"},
		{WebpageURL: "https://example.com/2", Title: "two"},
	}}
	fetcher := download.NewFetcher(reader, store, 3, nil)

	first, err := fetcher.Fetch(context.Background(), "chan")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.Inserted != 2 || first.Known != 0 {
		t.Fatalf("unexpected first report %+v", first)
	}
	second, err := fetcher.Fetch(context.Background(), "chan")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if second.Inserted != 0 || second.Known != 2 {
		t.Fatalf("unexpected second report %+v", second)
	}
}

// flakyInserter fails inserts for one URL and forwards the rest.
type flakyInserter struct {
	store *queue.Store
	bad   string
}

func (f flakyInserter) Insert(ctx context.Context, c queue.Candidate) (bool, error) {
	if c.WebpageURL == f.bad {
		return false, errors.New("disk I/O error")
	}
	return f.store.Insert(ctx, c)
}

func TestFetcherSkipsFailedInsert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reader := fakeReader{candidates: []queue.Candidate{
		{WebpageURL: "https://example.com/1", Title: "one"},
		{WebpageURL: "https://example.com/2", Title: "two"},
		{WebpageURL: "https://example.com/3", Title: "three"},
	}}
	fetcher := download.NewFetcher(reader, flakyInserter{store: store, bad: "https://example.com/2"}, 3, nil)

	report, err := fetcher.Fetch(context.Background(), "chan")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Inserted != 2 || report.Failed != 1 || report.Known != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	all, err := store.List(context.Background(), queue.Filter{Source: "chan"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 stored entries, got %d", len(all))
	}
}

func TestRouterDispatchesFeeds(t *testing.T) {
	feeds := fakeReader{candidates: []queue.Candidate{{WebpageURL: "https://cdn/x.mp3"}}}
	router := download.Router{Default: fakeReader{}, Feeds: feeds}
	got, err := router.FetchEntries(context.Background(), "feed:https://example.com/rss", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("feed source not routed: %v %v", got, err)
	}
	got, err = router.FetchEntries(context.Background(), "https://youtube.com/@x", 1)
	if err != nil || len(got) != 0 {
		t.Fatalf("plain source not routed to default: %v %v", got, err)
	}
}
