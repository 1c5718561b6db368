package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Validate ensures the configuration is usable. Credentials and prompt
// templates are checked separately at pipeline startup so read-only CLI
// commands work without them.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if c.StableFile.MinSizeBytes < 0 {
		return errors.New("stable_file.min_size_bytes must be >= 0")
	}
	if c.StableFile.MinAgeSeconds < 0 {
		return errors.New("stable_file.min_age_seconds must be >= 0")
	}
	if c.Sources.EntriesLimit <= 0 {
		return errors.New("sources.entries_limit must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.download_interval":    c.Workflow.DownloadInterval,
		"workflow.process_interval":     c.Workflow.ProcessInterval,
		"workflow.push_interval":        c.Workflow.PushInterval,
		"workflow.pool_size":            c.Workflow.PoolSize,
		"transcription.segment_seconds": c.Transcription.SegmentSeconds,
		"download.timeout_seconds":      c.Download.TimeoutSeconds,
		"notifications.connect_timeout": c.Notifications.ConnectTimeout,
		"notifications.read_timeout":    c.Notifications.ReadTimeout,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"retention.stale_pending_hours": c.Retention.StalePendingHours,
		"retention.local_max_age_hours": c.Retention.LocalMaxAgeHours,
		"retention.keep_per_source":     c.Retention.KeepPerSource,
	}); err != nil {
		return err
	}
	for key, value := range map[string]int{
		"workflow.update_limit":     c.Workflow.UpdateLimit,
		"workflow.transcribe_limit": c.Workflow.TranscribeLimit,
		"workflow.summarize_limit":  c.Workflow.SummarizeLimit,
		"workflow.push_limit":       c.Workflow.PushLimit,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0 (0 means unbounded)", key)
		}
	}
	return nil
}

func (c *Config) validateRetention() error {
	sources := make([]string, 0, len(c.Retention.Sources))
	for source := range c.Retention.Sources {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		policy := c.Retention.Sources[source]
		switch policy.Policy {
		case "keep_newest":
			if policy.Keep <= 0 {
				return fmt.Errorf("retention.sources.%q.keep must be positive for keep_newest", source)
			}
		case "max_age":
			if policy.MaxAgeHours <= 0 {
				return fmt.Errorf("retention.sources.%q.max_age_hours must be positive for max_age", source)
			}
		case "keep_all":
		default:
			return fmt.Errorf("retention.sources.%q.policy must be keep_newest, max_age, or keep_all", source)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !slices.Contains([]int{25, 50, 75, 100}, c.LLM.CompressLevel) {
		return errors.New("llm.compress_level must be one of 25, 50, 75, 100")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Provider {
	case "none":
	case "ntfy":
		if c.Notifications.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when provider is ntfy")
		}
	case "serverchan":
		if c.Notifications.ServerChanKey == "" {
			return errors.New("notifications.serverchan_key must be set when provider is serverchan (or set BRIEFCAST_SERVERCHAN_KEY)")
		}
	default:
		return fmt.Errorf("notifications.provider %q is not supported (use ntfy, serverchan, or none)", c.Notifications.Provider)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
