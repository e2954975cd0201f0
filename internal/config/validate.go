package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources.Instances) == 0 {
		return errors.New("sources.instances must list at least one endpoint")
	}
	for _, endpoint := range c.Sources.Instances {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("sources.instances: %q is not an absolute URL", endpoint)
		}
	}
	if c.Extractor.Enabled && strings.TrimSpace(c.Extractor.Binary) == "" {
		return errors.New("extractor.binary must be set when extractor.enabled is true")
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url: %q is not an absolute URL", c.LLM.BaseURL)
	}
	for task := range c.LLM.Models {
		if !knownTask(task) {
			return fmt.Errorf("llm.models: unknown task %q", task)
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ArtifactCacheSize < 0 {
		return errors.New("pipeline.artifact_cache_size must be positive")
	}
	if c.Pipeline.ContentCacheSize < 0 {
		return errors.New("pipeline.content_cache_size must be positive")
	}
	if c.Pipeline.CacheTTLHours < 0 {
		return errors.New("pipeline.cache_ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.ChunkSize < 1 {
		return errors.New("batch.chunk_size must be positive")
	}
	return nil
}

// KnownTasks lists the task names accepted under [llm.models].
var KnownTasks = []string{
	"transcript_fix",
	"sentence_split",
	"phrase_extract",
	"translation",
	"analysis",
	"learning_tips",
}

func knownTask(task string) bool {
	for _, candidate := range KnownTasks {
		if candidate == task {
			return true
		}
	}
	return false
}
