package testsupport

import (
	"context"
	"testing"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertEntry stores a candidate for source/url and returns the persisted entry.
func InsertEntry(t testing.TB, store *queue.Store, source, url string) *queue.Entry {
	t.Helper()

	ctx := context.Background()
	inserted, err := store.Insert(ctx, queue.Candidate{Source: source, WebpageURL: url, Title: url})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	if !inserted {
		t.Fatalf("store.Insert(%s): entry already exists", url)
	}
	entry, err := store.GetByVideoID(ctx, queue.RemoteVideoID(url))
	if err != nil || entry == nil {
		t.Fatalf("store.GetByVideoID: %v (entry=%v)", err, entry)
	}
	return entry
}

// AdvanceEntry sets the entry's flags up to and including stage and persists it.
func AdvanceEntry(t testing.TB, store *queue.Store, entry *queue.Entry, stage queue.Stage) *queue.Entry {
	t.Helper()

stages:
	for _, s := range queue.Stages {
		switch s {
		case queue.StageDownload:
			entry.Downloaded = true
			if entry.DownloadedAt.IsZero() {
				entry.DownloadedAt = time.Now()
			}
		case queue.StageTranscribe:
			entry.Transcribed = true
		case queue.StageSummarize:
			entry.Summarized = true
		case queue.StagePush:
			entry.Pushed = true
		}
		if s == stage {
			break stages
		}
	}
	if err := store.Update(context.Background(), entry); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	return entry
}
