package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

// Command and model defaults.
const (
	DefaultCommand = "whisper"
	DefaultModel   = "medium"
	OutputFormat   = "txt"
)

// Config captures runtime settings for whisper invocations.
type Config struct {
	Command string
	Model   string
	// ScratchDir is the parent of per-session output directories.
	ScratchDir string
}

// ConfigFromApp reads the [transcription] section.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		Command:    cfg.Transcription.Command,
		Model:      cfg.Transcription.Model,
		ScratchDir: cfg.Paths.TemporaryDir,
	}
}

// Service creates transcription sessions.
type Service struct {
	cfg Config
	run services.CommandRunner
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg, run: services.ExecRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run services.CommandRunner) {
	if run != nil {
		s.run = run
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// NewSession prepares a scratch directory owned by one worker.
func (s *Service) NewSession(_ context.Context, worker int) (*Session, error) {
	parent := s.cfg.ScratchDir
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("whisper session: ensure scratch root: %w", err)
	}
	dir, err := os.MkdirTemp(parent, fmt.Sprintf(".whisper-w%d-", worker))
	if err != nil {
		return nil, fmt.Errorf("whisper session: create scratch dir: %w", err)
	}
	return &Session{service: s, dir: dir, worker: worker}, nil
}

// Session transcribes segments for one worker.
type Session struct {
	service *Service
	dir     string
	worker  int
}

// Dir is the session's scratch directory.
func (s *Session) Dir() string { return s.dir }

// Transcribe runs whisper on segmentPath and returns the recognized text.
// An empty language lets whisper detect it.
func (s *Session) Transcribe(ctx context.Context, segmentPath, language string) (string, error) {
	if strings.TrimSpace(segmentPath) == "" {
		return "", services.Wrap(services.ErrValidation, "transcribe", "whisper", "segment path required", nil)
	}
	args := s.buildArgs(segmentPath, language)
	if _, err := s.service.run(ctx, s.service.cfg.Command, args...); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(segmentPath), filepath.Ext(segmentPath))
	outputPath := filepath.Join(s.dir, base+"."+OutputFormat)
	data, err := os.ReadFile(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "no transcript written for "+filepath.Base(segmentPath), err)
		}
		return "", fmt.Errorf("whisper: read transcript: %w", err)
	}
	_ = os.Remove(outputPath)
	return strings.TrimSpace(string(data)), nil
}

// Close removes the scratch directory.
func (s *Session) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

func (s *Session) buildArgs(segmentPath, language string) []string {
	args := []string{
		segmentPath,
		"--model", s.service.cfg.Model,
		"--output_dir", s.dir,
		"--output_format", OutputFormat,
		"--verbose", "False",
	}
	if language = strings.TrimSpace(language); language != "" {
		args = append(args, "--language", language)
	}
	return args
}
