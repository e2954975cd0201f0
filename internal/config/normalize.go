package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeExtractor()
	c.normalizeLLM()
	c.normalizePipeline()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	instances := make([]string, 0, len(c.Sources.Instances))
	seen := make(map[string]struct{}, len(c.Sources.Instances))
	for _, raw := range c.Sources.Instances {
		endpoint := strings.TrimRight(strings.TrimSpace(raw), "/")
		if endpoint == "" {
			continue
		}
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		instances = append(instances, endpoint)
	}
	c.Sources.Instances = instances
	if value, ok := os.LookupEnv("LINGOCAST_ENV"); ok && strings.EqualFold(strings.TrimSpace(value), "production") {
		c.Sources.Production = true
	}
	if c.Sources.RequestTimeoutSeconds <= 0 {
		c.Sources.RequestTimeoutSeconds = defaultSourceTimeoutSeconds
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultSourceUserAgent
	}
}

func (c *Config) normalizeExtractor() {
	c.Extractor.Binary = strings.TrimSpace(c.Extractor.Binary)
	if c.Extractor.Binary == "" {
		c.Extractor.Binary = defaultExtractorBinary
	}
	if c.Extractor.TimeoutSeconds <= 0 {
		c.Extractor.TimeoutSeconds = defaultExtractorTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("LINGOCAST_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.DefaultModel = strings.TrimSpace(c.LLM.DefaultModel)
	if c.LLM.DefaultModel == "" {
		c.LLM.DefaultModel = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RequestsPerSecond < 0 {
		c.LLM.RequestsPerSecond = 0
	}
	models := make(map[string]string, len(c.LLM.Models))
	for task, model := range c.LLM.Models {
		task = strings.ToLower(strings.TrimSpace(task))
		model = strings.TrimSpace(model)
		if task == "" || model == "" {
			continue
		}
		models[task] = model
	}
	c.LLM.Models = models
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.SentenceDelayMillis < 0 {
		c.Pipeline.SentenceDelayMillis = 0
	}
	if c.Pipeline.ArtifactCacheSize == 0 {
		c.Pipeline.ArtifactCacheSize = defaultArtifactCacheSize
	}
	if c.Pipeline.ContentCacheSize == 0 {
		c.Pipeline.ContentCacheSize = defaultContentCacheSize
	}
	if c.Pipeline.CacheTTLHours == 0 {
		c.Pipeline.CacheTTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.ChunkSize == 0 {
		c.Batch.ChunkSize = defaultBatchChunkSize
	}
	if c.Batch.ChunkDelayMillis < 0 {
		c.Batch.ChunkDelayMillis = 0
	}
	if c.Batch.CooldownMillis < 0 {
		c.Batch.CooldownMillis = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
