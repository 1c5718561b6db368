package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"briefcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	prompts bool
}

// NewConfig produces a normalized config rooted in a per-test temp directory.
// Every derived path (audio, output, temporary, database) lives under it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.LLM.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if builder.prompts {
		if _, err := config.WriteDefaultPrompts(builder.cfg.Paths.PromptDir); err != nil {
			t.Fatalf("write prompts: %v", err)
		}
	}
	return builder.cfg
}

// WithSources sets the configured source URLs.
func WithSources(urls ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.URLs = append([]string(nil), urls...)
	}
}

// WithPoolSize overrides the worker pool size.
func WithPoolSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.PoolSize = n
	}
}

// WithReadLanguage overrides the digest reading language.
func WithReadLanguage(language string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.ReadLanguage = language
	}
}

// WithPrompts installs the bundled prompt templates.
func WithPrompts() ConfigOption {
	return func(b *configBuilder) {
		b.prompts = true
	}
}

// WithConfig applies an arbitrary mutation before normalization.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the pipeline's external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe", "whisper"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
