package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"briefcast/internal/config"
	"briefcast/internal/deps"
	"briefcast/internal/notifications"
	"briefcast/internal/services/llm"
)

// CheckLLM verifies that the chat API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM API"
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.ConfigFromApp(cfg), llm.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(checkCtx, cfg.LLM.SummarizeModel); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckCredentials verifies that the chat API key is configured.
func CheckCredentials(cfg *config.Config) Result {
	const name = "LLM credentials"
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "llm.api_key is empty (or set BRIEFCAST_API_KEY)"}
	}
	if !config.KnownModel(cfg.LLM.SummarizeModel) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("unknown model %q uses default limits", cfg.LLM.SummarizeModel)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.LLM.SummarizeModel}
}

// CheckNotifications reports the configured push sink. A disabled sink
// passes; the push stage then only logs.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	switch cfg.Notifications.Provider {
	case notifications.ProviderNtfy:
		if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
			return Result{Name: name, Detail: "ntfy_topic missing"}
		}
		return Result{Name: name, Passed: true, Detail: "ntfy " + cfg.Notifications.NtfyTopic}
	case notifications.ProviderServerChan:
		if strings.TrimSpace(cfg.Notifications.ServerChanKey) == "" {
			return Result{Name: name, Detail: "serverchan_key missing"}
		}
		return Result{Name: name, Passed: true, Detail: "ServerChan"}
	default:
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
}

// CheckPrompts verifies that every required prompt template is present.
func CheckPrompts(dir string) Result {
	const name = "Prompt templates"
	if _, err := config.LoadPrompts(dir); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs the pipeline runs.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Resolution {
	return deps.Resolve(
		deps.Binary{Name: "yt-dlp", Command: cfg.Download.YtDlpBinary, Purpose: "enumerate sources and download audio"},
		deps.Binary{Name: "FFmpeg", Command: cfg.Transcription.FFmpegBinary, Purpose: "split audio into segments"},
		deps.Binary{Name: "FFprobe", Command: cfg.Transcription.FFprobeBinary, Purpose: "measure audio duration"},
		deps.Binary{Name: "Whisper", Command: cfg.Transcription.Command, Purpose: "speech-to-text"},
	)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
