package config

const (
	defaultCacheDir              = "~/.cache/lingocast"
	defaultScratchDir            = "~/.cache/lingocast/scratch"
	defaultLogDir                = "~/.local/share/lingocast/logs"
	defaultSourceTimeoutSeconds  = 10
	defaultSourceUserAgent       = "lingocast/dev"
	defaultExtractorBinary       = "yt-dlp"
	defaultExtractorTimeout      = 30
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "meta-llama/llama-3.1-8b-instruct"
	defaultLLMReferer            = "https://github.com/lingocast/lingocast"
	defaultLLMTitle              = "lingocast"
	defaultLLMTimeoutSeconds     = 30
	defaultLLMRequestsPerSecond  = 2
	defaultSentenceDelayMillis   = 300
	defaultArtifactCacheSize     = 256
	defaultContentCacheSize      = 2048
	defaultCacheTTLHours         = 24
	defaultBatchChunkSize        = 3
	defaultBatchChunkDelayMillis = 1000
	defaultBatchCooldownMillis   = 500
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 20
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 30
)

// DefaultInstances lists the public caption source instances tried in order.
var DefaultInstances = []string{
	"https://inv.nadeko.net",
	"https://invidious.nerdvpn.de",
	"https://yewtu.be",
	"https://pipedapi.kavin.rocks",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	instances := make([]string, len(DefaultInstances))
	copy(instances, DefaultInstances)
	return Config{
		Paths: Paths{
			CacheDir:   defaultCacheDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Sources: Sources{
			Instances:             instances,
			RequestTimeoutSeconds: defaultSourceTimeoutSeconds,
			UserAgent:             defaultSourceUserAgent,
		},
		Extractor: Extractor{
			Enabled:        true,
			Binary:         defaultExtractorBinary,
			TimeoutSeconds: defaultExtractorTimeout,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			DefaultModel:      defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerSecond: defaultLLMRequestsPerSecond,
			Models:            map[string]string{},
		},
		Pipeline: Pipeline{
			SentenceDelayMillis: defaultSentenceDelayMillis,
			ArtifactCacheSize:   defaultArtifactCacheSize,
			ContentCacheSize:    defaultContentCacheSize,
			CacheTTLHours:       defaultCacheTTLHours,
			PersistArtifacts:    true,
		},
		Batch: Batch{
			ChunkSize:        defaultBatchChunkSize,
			ChunkDelayMillis: defaultBatchChunkDelayMillis,
			CooldownMillis:   defaultBatchCooldownMillis,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
