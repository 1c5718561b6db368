package summarization_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"briefcast/internal/artifacts"
	"briefcast/internal/config"
	"briefcast/internal/queue"
	"briefcast/internal/services"
	"briefcast/internal/services/llm"
	"briefcast/internal/stage"
	"briefcast/internal/summarization"
	"briefcast/internal/testsupport"
)

type call struct {
	system string
	user   string
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []call
	fail  error
}

func (f *fakeCompleter) Complete(_ context.Context, system, user, model string) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{system: system, user: user})
	if f.fail != nil {
		return llm.Completion{}, f.fail
	}
	return llm.Completion{Content: "resp" + string(rune('0'+len(f.calls))), Model: model, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (f *fakeCompleter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var prompts = config.Prompts{
	config.PromptInspect:      "inspect",
	config.PromptSummarize:    "summarize",
	config.PromptOutlineTrace: "outline",
	config.PromptBrief:        "brief",
}

func transcribedJob() stage.Job {
	return stage.NewJob(&queue.Entry{ID: 1, VideoID: "0123456789abcdef", Downloaded: true, Transcribed: true})
}

func TestSummarizeWritesOutlineAndBrief(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.NewLayout(cfg)
	job := transcribedJob()
	testsupport.WriteText(t, layout.WhisperPath(job.VideoID), "hello world\n")

	client := &fakeCompleter{}
	proc := summarization.NewProcessor(client, prompts, summarization.Options{Model: "gpt-4o-mini", Layout: layout})

	result := proc.Process(context.Background(), struct{}{}, job)
	if !result.OK() || !result.Job.Summarized {
		t.Fatalf("expected success, got %+v", result)
	}
	if client.count() != 2 {
		t.Fatalf("expected outline and brief calls, got %d", client.count())
	}
	if client.calls[0].user != "hello world\n" || client.calls[0].system != "outline" {
		t.Fatalf("single chunk should be sent untagged, got %+v", client.calls[0])
	}
	if got := testsupport.ReadText(t, layout.OutlinePath(job.VideoID)); got != "resp1" {
		t.Fatalf("outline = %q", got)
	}
	if client.calls[1].user != "resp1" || client.calls[1].system != "brief" {
		t.Fatalf("brief request = %+v", client.calls[1])
	}
	if got := testsupport.ReadText(t, layout.BriefPath(job.VideoID)); got != "resp2" {
		t.Fatalf("brief = %q", got)
	}
}

func TestSummarizeReusesExistingOutline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.NewLayout(cfg)
	job := transcribedJob()
	testsupport.WriteText(t, layout.WhisperPath(job.VideoID), "transcript")
	testsupport.WriteText(t, layout.OutlinePath(job.VideoID), "cached outline")

	client := &fakeCompleter{}
	proc := summarization.NewProcessor(client, prompts, summarization.Options{Model: "gpt-4o-mini", Layout: layout})
	if result := proc.Process(context.Background(), struct{}{}, job); !result.OK() {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if client.count() != 1 || client.calls[0].user != "cached outline" {
		t.Fatalf("expected a single brief call on the cached outline, got %+v", client.calls)
	}
}

func TestSummarizeTagsMultipartInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.NewLayout(cfg)
	job := transcribedJob()

	// gpt-4o-mini has a 2048 token window; this transcript needs three chunks.
	words := strings.Repeat("word ", 5000)
	testsupport.WriteText(t, layout.WhisperPath(job.VideoID), words)

	client := &fakeCompleter{}
	proc := summarization.NewProcessor(client, prompts, summarization.Options{Model: "gpt-4o-mini", Layout: layout})
	if result := proc.Process(context.Background(), struct{}{}, job); !result.OK() {
		t.Fatalf("expected success, got %v", result.Err)
	}

	parts := client.count() - 1
	if parts < 2 {
		t.Fatalf("expected several outline calls, got %d", parts)
	}
	var joined strings.Builder
	for i := 0; i < parts; i++ {
		user := client.calls[i].user
		prefix := "[Part " + string(rune('1'+i)) + "/" + string(rune('0'+parts)) + "] segmented input; keep context.\n"
		if !strings.HasPrefix(user, prefix) {
			t.Fatalf("call %d missing part tag: %q", i, user[:min(len(user), 60)])
		}
		joined.WriteString(strings.TrimPrefix(user, prefix))
	}
	if joined.String() != words {
		t.Fatal("chunks do not reassemble to the transcript")
	}

	outline := testsupport.ReadText(t, layout.OutlinePath(job.VideoID))
	if !strings.HasPrefix(outline, "[Part 1/") || !strings.Contains(outline, "\n\n[Part 2/") {
		t.Fatalf("outline entries not tagged: %q", outline)
	}
}

func TestSummarizeMissingTranscriptFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	proc := summarization.NewProcessor(&fakeCompleter{}, prompts, summarization.Options{Layout: artifacts.NewLayout(cfg)})

	result := proc.Process(context.Background(), struct{}{}, transcribedJob())
	if result.OK() || !errors.Is(result.Err, services.ErrNotFound) {
		t.Fatalf("expected not-found failure, got %+v", result)
	}
	if result.Commit {
		t.Fatal("failed summaries must not be committed")
	}
}

func TestSummarizeCompletionErrorLeavesNoBrief(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.NewLayout(cfg)
	job := transcribedJob()
	testsupport.WriteText(t, layout.WhisperPath(job.VideoID), "transcript")

	client := &fakeCompleter{fail: services.Wrap(services.ErrTransient, "", "chat", "rate limited", nil)}
	proc := summarization.NewProcessor(client, prompts, summarization.Options{Layout: layout})
	result := proc.Process(context.Background(), struct{}{}, job)
	if result.OK() || !services.Retryable(result.Err) {
		t.Fatalf("expected retryable failure, got %+v", result)
	}
	if artifacts.Exists(layout.BriefPath(job.VideoID)) {
		t.Fatal("brief written despite failure")
	}
}

func TestCompressLevelShortensBriefPrompt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := artifacts.NewLayout(cfg)
	job := transcribedJob()
	testsupport.WriteText(t, layout.WhisperPath(job.VideoID), "transcript")
	testsupport.WriteText(t, layout.OutlinePath(job.VideoID), "outline")

	client := &fakeCompleter{}
	proc := summarization.NewProcessor(client, prompts, summarization.Options{CompressLevel: 50, Layout: layout})
	if result := proc.Process(context.Background(), struct{}{}, job); !result.OK() {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if !strings.Contains(client.calls[0].system, "50%") {
		t.Fatalf("brief prompt missing compression hint: %q", client.calls[0].system)
	}
}
