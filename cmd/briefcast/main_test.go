package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"briefcast/internal/config"
	"briefcast/internal/queue"
	"briefcast/internal/testsupport"
)

type cliEnv struct {
	configPath string
	dataDir    string
}

func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("BRIEFCAST_API_KEY", "")
	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(base, "config.toml")
	content := "[paths]\ndata_dir = \"" + dataDir + "\"\n\n[llm]\napi_key = \"sk-test-secret\"\n"
	testsupport.WriteText(t, configPath, content)
	return cliEnv{configPath: configPath, dataDir: dataDir}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e cliEnv) seed(t *testing.T, urls ...string) {
	t.Helper()
	cfg, _, _, err := config.Load(e.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	for _, url := range urls {
		testsupport.InsertEntry(t, store, "https://example.com/channel", url)
	}
	store.Close()
}

func TestQueueListShowsEntries(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "No entries") {
		t.Fatalf("expected empty listing, got:\n%s", out)
	}

	env.seed(t, "https://example.com/watch/one", "https://example.com/watch/two")
	out, err = env.run(t, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	for _, want := range []string{queue.RemoteVideoID("https://example.com/watch/one"), "download", "Video ID"} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "queue", "list", "--stage", "push")
	if err != nil || !strings.Contains(out, "No entries") {
		t.Fatalf("push listing: err=%v\n%s", err, out)
	}
	if _, err := env.run(t, "queue", "list", "--stage", "encode"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestQueueShow(t *testing.T) {
	env := setupCLI(t)
	env.seed(t, "https://example.com/watch/one")

	out, err := env.run(t, "queue", "show", "1")
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	if !strings.Contains(out, "https://example.com/watch/one") || !strings.Contains(out, "Downloaded") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := env.run(t, "queue", "show", "99"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestStatusReportsStoppedPipeline(t *testing.T) {
	env := setupCLI(t)
	env.seed(t, "https://example.com/watch/one")

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"== Pipeline ==", "stopped", "== Queue ==", "== Readiness ==", "Database"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-test-secret") {
		t.Fatalf("api key leaked:\n%s", out)
	}
	if !strings.Contains(out, env.dataDir) {
		t.Fatalf("expected data dir in output:\n%s", out)
	}
}

func TestConfigInitWritesPrompts(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "briefcast.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", target, "config", "init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	prompts := filepath.Join(base, ".local", "share", "briefcast", "prompts")
	for _, name := range config.RequiredPrompts {
		if _, err := os.Stat(filepath.Join(prompts, name+".txt")); err != nil {
			t.Fatalf("prompt %s missing: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Wrote sample configuration") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestOnceRejectsUnknownTask(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "once", "encode"); err == nil || !strings.Contains(err.Error(), "unknown task") {
		t.Fatalf("err = %v", err)
	}
}

func TestSweepDryRunKeepsEntries(t *testing.T) {
	env := setupCLI(t)
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := config.WriteDefaultPrompts(cfg.Paths.PromptDir); err != nil {
		t.Fatalf("prompts: %v", err)
	}
	orphan := filepath.Join(cfg.Paths.OutputDir, "0123456789abcdef")
	testsupport.WriteText(t, filepath.Join(orphan, "brief.txt"), "old")

	out, err := env.run(t, "sweep", "--dry-run")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "Dry run") || !strings.Contains(out, orphan) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("dry run removed the orphan: %v", err)
	}
}

func TestLogsWithoutRun(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No log at") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSearchWithoutIndexFails(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "search", "anything"); err == nil {
		t.Fatal("expected error when nothing has been indexed")
	}
}
