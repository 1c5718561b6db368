package stage_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/stage"
)

func TestJobCopiesAreIndependent(t *testing.T) {
	entry := &queue.Entry{ID: 7, VideoID: "abc", Source: "s", WebpageURL: "u", DownloadError: "old"}
	job := stage.NewJob(entry)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	done := job.WithDownload("/audio/abc.mp3", at)

	if job.Downloaded || job.FilePath != "" || job.DownloadError != "old" {
		t.Fatalf("original job was mutated: %+v", job)
	}
	if !done.Downloaded || done.DownloadError != "" || !done.DownloadedAt.Equal(at) {
		t.Fatalf("unexpected updated job: %+v", done)
	}
	back := done.Entry()
	if back.ID != 7 || back.FilePath != "/audio/abc.mp3" || !back.Downloaded {
		t.Fatalf("unexpected entry conversion: %+v", back)
	}
	if entry.Downloaded {
		t.Fatal("source entry must not change")
	}
}

func TestResultReasons(t *testing.T) {
	job := stage.Job{VideoID: "abc"}

	if r := stage.Success(job); !r.OK() || !r.Commit || r.Reason() != "" {
		t.Fatalf("unexpected success result %+v", r)
	}

	err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "exit status 1", nil)
	failed := stage.Failure(job, err)
	if failed.OK() || failed.Commit {
		t.Fatalf("failure should not commit by default: %+v", failed)
	}
	if !strings.HasPrefix(failed.Reason(), "ExternalTool: ") {
		t.Fatalf("unexpected reason %q", failed.Reason())
	}
	if !errors.Is(failed.Err, services.ErrExternalTool) {
		t.Fatal("failure must keep the error marker")
	}

	stateful := stage.FailureWithState(job.WithDownloadError("mp3 not created"), errors.New("mp3 not created"))
	if !stateful.Commit || stateful.Job.DownloadError != "mp3 not created" {
		t.Fatalf("unexpected stateful failure %+v", stateful)
	}

	skipped := stage.Skipped(job, "empty brief")
	if skipped.Outcome != stage.OutcomeSkipped || skipped.Reason() != "empty brief" {
		t.Fatalf("unexpected skipped result %+v", skipped)
	}
}

func TestJobLabel(t *testing.T) {
	if got := (stage.Job{Title: " Talk ", VideoID: "x"}).Label(); got != "Talk" {
		t.Fatalf("label = %q", got)
	}
	if got := (stage.Job{VideoID: "x"}).Label(); got != "x" {
		t.Fatalf("label = %q", got)
	}
}
