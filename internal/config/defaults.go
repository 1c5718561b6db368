package config

const (
	defaultConfigPath        = "~/.config/briefcast/config.toml"
	defaultDataDir           = "~/.local/share/briefcast"
	defaultEntriesLimit      = 3
	defaultDownloadInterval  = 6 * 60 * 60
	defaultProcessInterval   = 10 * 60
	defaultPushInterval      = 10 * 60
	defaultPoolSize          = 2
	defaultUpdateLimit       = 3
	defaultPushLimit         = 5
	defaultMinSizeBytes      = 1024
	defaultMinAgeSeconds     = 60
	defaultKeepPerSource     = 20
	defaultLocalMaxAgeHours  = 7 * 24
	defaultStalePendingHours = 24
	defaultLLMBaseURL        = "https://api.openai.com/v1"
	defaultSummarizeModel    = "gpt-4.1-nano"
	defaultTranslateModel    = "gpt-4o-mini"
	defaultCompressLevel     = 100
	defaultReadLanguage      = "english"
	defaultLLMTimeoutSeconds = 120
	defaultWhisperCommand    = "whisper"
	defaultWhisperModel      = "medium"
	defaultSegmentSeconds    = 1800
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultYtDlpBinary       = "yt-dlp"
	defaultAudioQuality      = "192K"
	defaultDownloadTimeout   = 30 * 60
	defaultNotifyProvider    = "none"
	defaultNtfyServer        = "https://ntfy.sh"
	defaultNotifyTitle       = "Briefing Summary"
	defaultConnectTimeout    = 10
	defaultReadTimeout       = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultAudioDirName      = "audio"
	defaultOutputDirName     = "output"
	defaultTemporaryDirName  = "temporary"
	defaultPromptDirName     = "prompts"
	defaultIndexDirName      = "index"
	defaultLogDirName        = "logs"
	defaultDatabaseFileName  = "briefcast.db"
	defaultPendingFileName   = ".pending.json"
)

// LocalSource is the source value recorded for entries imported from the
// audio directory rather than fetched from a feed.
const LocalSource = "local"

// DefaultExtensions are the file types the stable-file detector imports.
var DefaultExtensions = []string{
	".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg", ".opus",
	".mp4", ".mkv", ".mov", ".avi", ".webm", ".flv",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Sources: Sources{
			EntriesLimit: defaultEntriesLimit,
		},
		Workflow: Workflow{
			DownloadInterval: defaultDownloadInterval,
			ProcessInterval:  defaultProcessInterval,
			PushInterval:     defaultPushInterval,
			PoolSize:         defaultPoolSize,
			UpdateLimit:      defaultUpdateLimit,
			PushLimit:        defaultPushLimit,
		},
		StableFile: StableFile{
			MinSizeBytes:  defaultMinSizeBytes,
			MinAgeSeconds: defaultMinAgeSeconds,
			Extensions:    append([]string(nil), DefaultExtensions...),
		},
		Retention: Retention{
			KeepPerSource:     defaultKeepPerSource,
			LocalMaxAgeHours:  defaultLocalMaxAgeHours,
			StalePendingHours: defaultStalePendingHours,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			SummarizeModel: defaultSummarizeModel,
			TranslateModel: defaultTranslateModel,
			CompressLevel:  defaultCompressLevel,
			ReadLanguage:   defaultReadLanguage,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Transcription: Transcription{
			Command:        defaultWhisperCommand,
			Model:          defaultWhisperModel,
			SegmentSeconds: defaultSegmentSeconds,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Download: Download{
			YtDlpBinary:    defaultYtDlpBinary,
			AudioQuality:   defaultAudioQuality,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Notifications: Notifications{
			Provider:       defaultNotifyProvider,
			NtfyServer:     defaultNtfyServer,
			Title:          defaultNotifyTitle,
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
