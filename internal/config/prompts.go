package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"briefcast/internal/fileutil"
)

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// Prompt names loaded from the prompt directory as <name>.txt.
const (
	PromptInspect      = "inspect"
	PromptSummarize    = "summarize"
	PromptOutlineTrace = "outline_trace"
	PromptBrief        = "brief"
)

// RequiredPrompts lists every template the pipeline refuses to start without.
var RequiredPrompts = []string{PromptInspect, PromptSummarize, PromptOutlineTrace, PromptBrief}

// Prompts holds system prompt templates keyed by name.
type Prompts map[string]string

// ErrPromptMissing reports a required template that is absent or empty.
var ErrPromptMissing = errors.New("prompt template missing")

// LoadPrompts reads every required template from dir.
func LoadPrompts(dir string) (Prompts, error) {
	prompts := make(Prompts, len(RequiredPrompts))
	var missing []string
	for _, name := range RequiredPrompts {
		path := filepath.Join(dir, name+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, path)
				continue
			}
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			missing = append(missing, path)
			continue
		}
		prompts[name] = text
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrPromptMissing, strings.Join(missing, ", "))
	}
	return prompts, nil
}

// Get returns the named template, or an empty string.
func (p Prompts) Get(name string) string {
	return p[name]
}

// WriteDefaultPrompts installs the bundled templates into dir, leaving any
// existing file alone. It returns the paths it wrote.
func WriteDefaultPrompts(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prompt dir: %w", err)
	}
	var written []string
	for _, name := range RequiredPrompts {
		path := filepath.Join(dir, name+".txt")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := defaultPrompts.ReadFile("prompts/" + name + ".txt")
		if err != nil {
			return written, fmt.Errorf("read bundled prompt %s: %w", name, err)
		}
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write prompt %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
