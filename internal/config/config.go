package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the on-disk layout. Empty entries derive from DataDir.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	AudioDir     string `toml:"audio_dir"`
	OutputDir    string `toml:"output_dir"`
	TemporaryDir string `toml:"temporary_dir"`
	PromptDir    string `toml:"prompt_dir"`
	DatabasePath string `toml:"database_path"`
	PendingPath  string `toml:"pending_path"`
	IndexDir     string `toml:"index_dir"`
	LogDir       string `toml:"log_dir"`
}

// Sources lists the feeds and channels the download task enumerates.
type Sources struct {
	URLs         []string `toml:"urls"`
	EntriesLimit int      `toml:"entries_limit"`
}

// Workflow contains scheduler intervals (seconds), per-run batch limits, and
// pool sizing. A limit of 0 means unbounded.
type Workflow struct {
	DownloadInterval int `toml:"download_interval"`
	ProcessInterval  int `toml:"process_interval"`
	PushInterval     int `toml:"push_interval"`
	PoolSize         int `toml:"pool_size"`
	UpdateLimit      int `toml:"update_limit"`
	TranscribeLimit  int `toml:"transcribe_limit"`
	SummarizeLimit   int `toml:"summarize_limit"`
	PushLimit        int `toml:"push_limit"`
}

// StableFile configures detection of externally dropped audio files.
type StableFile struct {
	MinSizeBytes  int64    `toml:"min_size_bytes"`
	MinAgeSeconds int      `toml:"min_age_seconds"`
	Extensions    []string `toml:"extensions"`
}

// SourceRetention overrides the retention policy for one source.
type SourceRetention struct {
	Policy      string `toml:"policy"`
	Keep        int    `toml:"keep"`
	MaxAgeHours int    `toml:"max_age_hours"`
}

// Retention configures the entry sweeper.
type Retention struct {
	KeepPerSource     int                        `toml:"keep_per_source"`
	LocalMaxAgeHours  int                        `toml:"local_max_age_hours"`
	StalePendingHours int                        `toml:"stale_pending_hours"`
	Sources           map[string]SourceRetention `toml:"sources"`
}

// LLM contains chat-completion connection settings and summarization knobs.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	SummarizeModel string `toml:"summarize_model"`
	TranslateModel string `toml:"translate_model"`
	CompressLevel  int    `toml:"compress_level"`
	ReadLanguage   string `toml:"read_language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription configures audio splitting and the whisper CLI.
type Transcription struct {
	Command        string `toml:"command"`
	Model          string `toml:"model"`
	SegmentSeconds int    `toml:"segment_seconds"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Download configures the yt-dlp collaborator.
type Download struct {
	YtDlpBinary    string `toml:"ytdlp_binary"`
	AudioQuality   string `toml:"audio_quality"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications selects and configures the push sink.
type Notifications struct {
	Provider       string `toml:"provider"`
	NtfyServer     string `toml:"ntfy_server"`
	NtfyTopic      string `toml:"ntfy_topic"`
	ServerChanKey  string `toml:"serverchan_key"`
	Title          string `toml:"title"`
	ConnectTimeout int    `toml:"connect_timeout"`
	ReadTimeout    int    `toml:"read_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for briefcast.
//
// Configuration sections by subsystem:
//   - Paths: data directory layout, database and pending-map files
//   - Sources: feeds and channels to enumerate
//   - Workflow: scheduler intervals, batch limits, pool size
//   - StableFile: local import heuristics
//   - Retention: sweeper policy and per-source overrides
//   - LLM: chat completion endpoint, models, reading language
//   - Transcription: whisper and ffmpeg settings
//   - Download: yt-dlp settings
//   - Notifications: ntfy or ServerChan push sink
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sources       Sources       `toml:"sources"`
	Workflow      Workflow      `toml:"workflow"`
	StableFile    StableFile    `toml:"stable_file"`
	Retention     Retention     `toml:"retention"`
	LLM           LLM           `toml:"llm"`
	Transcription Transcription `toml:"transcription"`
	Download      Download      `toml:"download"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("briefcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data layout the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.AudioDir,
		c.Paths.OutputDir,
		c.Paths.TemporaryDir,
		c.Paths.PromptDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.IndexDir),
		filepath.Dir(c.Paths.DatabasePath),
		filepath.Dir(c.Paths.PendingPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Interval converts a workflow interval in seconds to a duration.
func Interval(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Hours converts an hour count to a duration.
func Hours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML. Secrets are masked.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	clone.LLM.APIKey = mask(clone.LLM.APIKey)
	clone.Notifications.ServerChanKey = mask(clone.Notifications.ServerChanKey)
	return toml.Marshal(clone)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
