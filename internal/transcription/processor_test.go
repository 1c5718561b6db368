package transcription_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"briefcast/internal/artifacts"
	"briefcast/internal/media/ffmpeg"
	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/testsupport"
	"briefcast/internal/transcription"
	"briefcast/internal/workflow"
)

type fakeProber struct{ seconds float64 }

func (f fakeProber) Duration(context.Context, string) (float64, error) { return f.seconds, nil }

type fakeCutter struct {
	mu    sync.Mutex
	spans []ffmpeg.Span
}

func (f *fakeCutter) Cut(_ context.Context, _, output string, span ffmpeg.Span) error {
	f.mu.Lock()
	f.spans = append(f.spans, span)
	f.mu.Unlock()
	return os.WriteFile(output, []byte("segment"), 0o644)
}

type fakeSession struct {
	id        int
	fail      error
	mu        sync.Mutex
	languages []string
	closed    bool
}

func (s *fakeSession) Transcribe(_ context.Context, path, language string) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.languages = append(s.languages, language)
	s.mu.Unlock()
	return fmt.Sprintf("text of %s", filepath.Base(path)), nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type sessionRecorder struct {
	mu       sync.Mutex
	sessions []*fakeSession
	fail     error
}

func (r *sessionRecorder) factory(context.Context, int) (transcription.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSession{id: len(r.sessions), fail: r.fail}
	r.sessions = append(r.sessions, s)
	return s, nil
}

func downloadedEntry(t *testing.T, store *queue.Store, layout artifacts.Layout, url, language string) *queue.Entry {
	t.Helper()
	entry := testsupport.InsertEntry(t, store, "chan", url)
	entry.Language = language
	entry.FilePath = layout.AudioPath(entry.VideoID, ".mp3")
	testsupport.WriteFile(t, entry.FilePath, 64)
	return testsupport.AdvanceEntry(t, store, entry, queue.StageDownload)
}

func TestTranscribeSegmentsAndCleansScratch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	layout := artifacts.NewLayout(cfg)
	entry := downloadedEntry(t, store, layout, "https://example.com/long", "en-US")

	recorder := &sessionRecorder{}
	cutter := &fakeCutter{}
	proc := transcription.NewProcessor(recorder.factory, fakeProber{seconds: 3700.4}, cutter, layout, 1800)
	adv := &workflow.Advancer[*transcription.WorkerContext]{Store: store, Processor: proc, PoolSize: 1}

	report, err := adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageTranscribe})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(cutter.spans) != 3 || cutter.spans[2].Start != 3600 || cutter.spans[2].End != 3700 {
		t.Fatalf("unexpected spans %+v", cutter.spans)
	}
	transcript := testsupport.ReadText(t, layout.WhisperPath(entry.VideoID))
	if !strings.HasPrefix(transcript, entry.VideoID+" at ") {
		t.Fatalf("transcript missing header: %q", transcript)
	}
	if !strings.HasSuffix(transcript, "text of V_0.mp3\ntext of V_1.mp3\ntext of V_2.mp3\n") {
		t.Fatalf("segments not appended in order: %q", transcript)
	}
	if history := testsupport.ReadText(t, layout.HistoryPath(entry.VideoID)); history != transcript {
		t.Fatalf("history diverged from transcript")
	}
	if _, err := os.Stat(layout.EntryTemporaryDir(entry.VideoID)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("scratch dir not removed: %v", err)
	}
	if got := recorder.sessions[0].languages; got[0] != "en" {
		t.Fatalf("language hint = %v", got)
	}

	stored, _ := store.Get(context.Background(), entry.ID)
	if !stored.Transcribed {
		t.Fatal("entry not marked transcribed")
	}
}

func TestTranscribeReusesWorkerSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	layout := artifacts.NewLayout(cfg)
	for i := range 3 {
		downloadedEntry(t, store, layout, fmt.Sprintf("https://example.com/%d", i), "")
	}

	recorder := &sessionRecorder{}
	proc := transcription.NewProcessor(recorder.factory, fakeProber{seconds: 10}, &fakeCutter{}, layout, 1800)
	adv := &workflow.Advancer[*transcription.WorkerContext]{Store: store, Processor: proc, PoolSize: 1}

	report, err := adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageTranscribe})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if report.Succeeded != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(recorder.sessions) != 1 {
		t.Fatalf("expected one session for one worker, got %d", len(recorder.sessions))
	}
	if !recorder.sessions[0].closed {
		t.Fatal("session not closed after the batch")
	}
}

func TestTranscribeFailureKeepsStageAndTruncatesOnRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	layout := artifacts.NewLayout(cfg)
	entry := downloadedEntry(t, store, layout, "https://example.com/flaky", "")

	recorder := &sessionRecorder{fail: services.Wrap(services.ErrExternalTool, "", "whisper", "crashed", nil)}
	proc := transcription.NewProcessor(recorder.factory, fakeProber{seconds: 10}, &fakeCutter{}, layout, 1800)
	adv := &workflow.Advancer[*transcription.WorkerContext]{Store: store, Processor: proc, PoolSize: 1}

	report, _ := adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageTranscribe})
	if report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := os.Stat(layout.EntryTemporaryDir(entry.VideoID)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("scratch dir must be removed on failure too")
	}

	recorder.fail = nil
	testsupport.WriteText(t, layout.WhisperPath(entry.VideoID), "stale partial transcript\n")
	report, _ = adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageTranscribe})
	if report.Succeeded != 1 {
		t.Fatalf("unexpected retry report %+v", report)
	}
	transcript := testsupport.ReadText(t, layout.WhisperPath(entry.VideoID))
	if strings.Contains(transcript, "stale") || strings.Count(transcript, "text of V_0.mp3") != 1 {
		t.Fatalf("retry did not start from a clean transcript: %q", transcript)
	}
}

func TestTranscribeRequiresAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	layout := artifacts.NewLayout(cfg)
	entry := downloadedEntry(t, store, layout, "https://example.com/gone", "")
	if err := os.Remove(entry.FilePath); err != nil {
		t.Fatal(err)
	}

	recorder := &sessionRecorder{}
	proc := transcription.NewProcessor(recorder.factory, fakeProber{seconds: 10}, &fakeCutter{}, layout, 1800)
	adv := &workflow.Advancer[*transcription.WorkerContext]{Store: store, Processor: proc, PoolSize: 1}
	report, _ := adv.Advance(context.Background(), workflow.StageBatch{Store: store, Name: queue.StageTranscribe})
	if report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}
