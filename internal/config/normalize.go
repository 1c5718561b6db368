package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Normalize expands paths, derives the data layout, and applies environment
// fallbacks. Load calls it; tests that build a Config by hand call it directly.
func (c *Config) Normalize() error {
	return c.normalize()
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeStableFile()
	c.normalizeRetention()
	c.normalizeLLM()
	c.normalizeTools()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	derived := []struct {
		key   string
		value *string
		name  string
	}{
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDirName},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDirName},
		{"paths.temporary_dir", &c.Paths.TemporaryDir, defaultTemporaryDirName},
		{"paths.prompt_dir", &c.Paths.PromptDir, defaultPromptDirName},
		{"paths.index_dir", &c.Paths.IndexDir, defaultIndexDirName},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDirName},
		{"paths.database_path", &c.Paths.DatabasePath, defaultDatabaseFileName},
		{"paths.pending_path", &c.Paths.PendingPath, defaultPendingFileName},
	}
	for _, field := range derived {
		value := strings.TrimSpace(*field.value)
		switch {
		case value == "":
			value = filepath.Join(c.Paths.DataDir, field.name)
		case !strings.HasPrefix(value, "~") && !filepath.IsAbs(value):
			value = filepath.Join(c.Paths.DataDir, value)
		}
		if *field.value, err = expandPath(value); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeSources() {
	urls := make([]string, 0, len(c.Sources.URLs))
	seen := make(map[string]struct{}, len(c.Sources.URLs))
	for _, raw := range c.Sources.URLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	c.Sources.URLs = urls
}

func (c *Config) normalizeStableFile() {
	if len(c.StableFile.Extensions) == 0 {
		c.StableFile.Extensions = append([]string(nil), DefaultExtensions...)
		return
	}
	exts := make([]string, 0, len(c.StableFile.Extensions))
	for _, ext := range c.StableFile.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.StableFile.Extensions = exts
}

func (c *Config) normalizeRetention() {
	if c.Retention.Sources == nil {
		c.Retention.Sources = map[string]SourceRetention{}
	}
	normalized := make(map[string]SourceRetention, len(c.Retention.Sources))
	for source, policy := range c.Retention.Sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		policy.Policy = strings.ToLower(strings.TrimSpace(policy.Policy))
		normalized[source] = policy
	}
	c.Retention.Sources = normalized
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("BRIEFCAST_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("BRIEFCAST_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.BaseURL = value
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.SummarizeModel = strings.TrimSpace(c.LLM.SummarizeModel)
	if c.LLM.SummarizeModel == "" {
		c.LLM.SummarizeModel = defaultSummarizeModel
	}
	c.LLM.TranslateModel = strings.TrimSpace(c.LLM.TranslateModel)
	if c.LLM.TranslateModel == "" {
		c.LLM.TranslateModel = defaultTranslateModel
	}
	c.LLM.ReadLanguage = strings.ToLower(strings.TrimSpace(c.LLM.ReadLanguage))
	if c.LLM.ReadLanguage == "" {
		c.LLM.ReadLanguage = defaultReadLanguage
	}
	if c.LLM.CompressLevel == 0 {
		c.LLM.CompressLevel = defaultCompressLevel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTools() {
	trimOr := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	trimOr(&c.Transcription.Command, defaultWhisperCommand)
	trimOr(&c.Transcription.Model, defaultWhisperModel)
	trimOr(&c.Transcription.FFmpegBinary, defaultFFmpegBinary)
	trimOr(&c.Transcription.FFprobeBinary, defaultFFprobeBinary)
	trimOr(&c.Download.YtDlpBinary, defaultYtDlpBinary)
	trimOr(&c.Download.AudioQuality, defaultAudioQuality)
	if c.Transcription.SegmentSeconds <= 0 {
		c.Transcription.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	if n.ServerChanKey == "" {
		if value, ok := os.LookupEnv("BRIEFCAST_SERVERCHAN_KEY"); ok {
			n.ServerChanKey = value
		}
	}
	if n.NtfyTopic == "" {
		if value, ok := os.LookupEnv("BRIEFCAST_NTFY_TOPIC"); ok {
			n.NtfyTopic = value
		}
	}
	n.ServerChanKey = strings.TrimSpace(n.ServerChanKey)
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	n.NtfyServer = strings.TrimRight(strings.TrimSpace(n.NtfyServer), "/")
	if n.NtfyServer == "" {
		n.NtfyServer = defaultNtfyServer
	}
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		n.Title = defaultNotifyTitle
	}
	n.Provider = strings.ToLower(strings.TrimSpace(n.Provider))
	if n.Provider == "" || n.Provider == defaultNotifyProvider {
		switch {
		case n.ServerChanKey != "":
			n.Provider = "serverchan"
		case n.NtfyTopic != "":
			n.Provider = "ntfy"
		default:
			n.Provider = defaultNotifyProvider
		}
	}
	if n.ConnectTimeout <= 0 {
		n.ConnectTimeout = defaultConnectTimeout
	}
	if n.ReadTimeout <= 0 {
		n.ReadTimeout = defaultReadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
