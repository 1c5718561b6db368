package retention_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"briefcast/internal/artifacts"
	"briefcast/internal/queue"
	"briefcast/internal/retention"
	"briefcast/internal/testsupport"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *queue.Store
	layout artifacts.Layout
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return fixture{store: testsupport.MustOpenStore(t, cfg), layout: artifacts.NewLayout(cfg)}
}

// processed inserts a fully processed entry with audio and output artifacts.
func (f fixture) processed(t *testing.T, source, url string, inserted time.Time) *queue.Entry {
	t.Helper()
	id := queue.RemoteVideoID(url)
	entry := &queue.Entry{
		VideoID: id, WebpageURL: url, Source: source, InsertedAt: inserted,
		Downloaded: true, Transcribed: true, Summarized: true, Pushed: true,
		FilePath: f.layout.AudioPath(id, ".mp3"),
	}
	if ok, err := f.store.InsertEntry(context.Background(), entry); err != nil || !ok {
		t.Fatalf("InsertEntry: ok=%v err=%v", ok, err)
	}
	testsupport.WriteFile(t, entry.FilePath, 128)
	testsupport.WriteText(t, f.layout.BriefPath(id), "brief")
	return entry
}

func (f fixture) exists(t *testing.T, id int64) bool {
	t.Helper()
	entry, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return entry != nil
}

func (f fixture) sweeper(opts retention.Options) *retention.Sweeper {
	opts.Layout = f.layout
	opts.Now = func() time.Time { return now }
	return retention.New(f.store, opts)
}

func TestKeepNewestPrunesOlderEntries(t *testing.T) {
	f := newFixture(t)
	var entries []*queue.Entry
	for i := range 4 {
		entries = append(entries, f.processed(t, "feed:a", fmt.Sprintf("https://a.example/%d", i), now.Add(time.Duration(i-10)*time.Hour)))
	}

	index := &fakeIndex{}
	sw := f.sweeper(retention.Options{Policies: retention.Policies{Default: retention.KeepNewest{N: 2}}, Index: index})
	report, err := sw.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned != 2 || report.Retained != 2 || len(report.Errors) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	for i, e := range entries {
		want := i >= 2
		if f.exists(t, e.ID) != want {
			t.Fatalf("entry %d exists=%v, want %v", i, !want, want)
		}
		if onDisk(e.FilePath) != want || onDisk(f.layout.EntryOutputDir(e.VideoID)) != want {
			t.Fatalf("entry %d artifacts not consistent with row", i)
		}
	}
	if len(index.deleted) != 2 {
		t.Fatalf("expected two unindexed briefs, got %v", index.deleted)
	}
}

func TestLocalSourcesUseMaxAge(t *testing.T) {
	f := newFixture(t)
	old := f.processed(t, queue.LocalSource, "local:old", now.Add(-8*24*time.Hour))
	fresh := f.processed(t, queue.LocalSource, "local:fresh", now.Add(-time.Hour))

	policies := retention.Policies{Default: retention.KeepNewest{N: 0}, Local: retention.MaxAge{D: 7 * 24 * time.Hour}}
	report, err := f.sweeper(retention.Options{Policies: policies}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned != 1 || f.exists(t, old.ID) || !f.exists(t, fresh.ID) {
		t.Fatalf("unexpected prune result %+v", report)
	}
}

func TestPruneKeepsRowWhenAudioDeleteFails(t *testing.T) {
	f := newFixture(t)
	entry := f.processed(t, "feed:a", "https://a.example/stuck", now.Add(-time.Hour))

	// A non-empty directory at the audio path cannot be removed with os.Remove.
	if err := os.Remove(entry.FilePath); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteText(t, filepath.Join(entry.FilePath, "inner"), "x")

	report, err := f.sweeper(retention.Options{Policies: retention.Policies{Default: retention.KeepNewest{N: 0}}}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned != 0 || len(report.Errors) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !f.exists(t, entry.ID) {
		t.Fatal("row deleted although its audio is still present")
	}
	if !artifacts.Exists(f.layout.BriefPath(entry.VideoID)) {
		t.Fatal("output removed although the row was kept")
	}
}

func TestPruneDeletesStalePending(t *testing.T) {
	f := newFixture(t)
	stale := &queue.Entry{WebpageURL: "https://a.example/stale", Source: "feed:a", InsertedAt: now.Add(-48 * time.Hour)}
	recent := &queue.Entry{WebpageURL: "https://a.example/recent", Source: "feed:a", InsertedAt: now.Add(-time.Hour)}
	for _, e := range []*queue.Entry{stale, recent} {
		if _, err := f.store.InsertEntry(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	report, err := f.sweeper(retention.Options{StalePending: 24 * time.Hour}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.StaleDeleted != 1 || f.exists(t, stale.ID) || !f.exists(t, recent.ID) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDryRunOnlyPlans(t *testing.T) {
	f := newFixture(t)
	entry := f.processed(t, "feed:a", "https://a.example/x", now.Add(-time.Hour))

	report, err := f.sweeper(retention.Options{Policies: retention.Policies{Default: retention.KeepNewest{N: 0}}, DryRun: true}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(report.Planned) != 1 || report.Planned[0] != entry.VideoID {
		t.Fatalf("unexpected plan %+v", report.Planned)
	}
	if !f.exists(t, entry.ID) || !artifacts.Exists(entry.FilePath) {
		t.Fatal("dry run deleted data")
	}
}

func TestReconcileKeepsKnownKeysOnly(t *testing.T) {
	f := newFixture(t)
	known := f.processed(t, "feed:a", "https://a.example/known", now)
	orphan := queue.RemoteVideoID("https://a.example/orphan")

	testsupport.WriteFile(t, f.layout.AudioPath(orphan, ".mp3"), 10)
	testsupport.WriteFile(t, f.layout.AudioPath(orphan, ".webm")+".part", 10)
	testsupport.WriteText(t, f.layout.WhisperPath(orphan), "old")
	testsupport.WriteFile(t, f.layout.SegmentPath(orphan, 0), 10)

	dropped := filepath.Join(f.layout.AudioDir, "my episode.mp3")
	testsupport.WriteFile(t, dropped, 10)
	hidden := filepath.Join(f.layout.TemporaryDir, ".whisper-w0-123")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	pendingOrphan := f.layout.AudioPath(queue.RemoteVideoID("https://a.example/pending"), ".mp3")
	testsupport.WriteFile(t, pendingOrphan, 10)

	sw := f.sweeper(retention.Options{Protected: func() []string { return []string{pendingOrphan} }})
	report, err := sw.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(report.Removed) != 4 || len(report.Errors) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, path := range []string{known.FilePath, f.layout.BriefPath(known.VideoID), dropped, hidden, pendingOrphan} {
		if !onDisk(path) {
			t.Fatalf("%s should have been kept", path)
		}
	}
	for _, path := range []string{f.layout.AudioPath(orphan, ".mp3"), f.layout.EntryOutputDir(orphan), f.layout.EntryTemporaryDir(orphan)} {
		if onDisk(path) {
			t.Fatalf("%s should have been removed", path)
		}
	}
}

// onDisk reports whether path exists as a file or a directory.
func onDisk(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type fakeIndex struct{ deleted []string }

func (f *fakeIndex) Delete(videoID string) error {
	f.deleted = append(f.deleted, videoID)
	return nil
}
