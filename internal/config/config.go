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

// Paths contains directory configuration.
type Paths struct {
	CacheDir   string `toml:"cache_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Sources contains configuration for the caption source instances.
type Sources struct {
	Instances             []string `toml:"instances"`
	Production            bool     `toml:"production"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	UserAgent             string   `toml:"user_agent"`
}

// Extractor contains configuration for the yt-dlp subprocess fallback.
type Extractor struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains inference endpoint settings.
type LLM struct {
	APIKey            string            `toml:"api_key"`
	BaseURL           string            `toml:"base_url"`
	DefaultModel      string            `toml:"default_model"`
	Referer           string            `toml:"referer"`
	Title             string            `toml:"title"`
	TimeoutSeconds    int               `toml:"timeout_seconds"`
	RequestsPerSecond float64           `toml:"requests_per_second"`
	Models            map[string]string `toml:"models"`
}

// Pipeline contains enrichment orchestration settings.
type Pipeline struct {
	SentenceDelayMillis int  `toml:"sentence_delay_ms"`
	ArtifactCacheSize   int  `toml:"artifact_cache_size"`
	ContentCacheSize    int  `toml:"content_cache_size"`
	CacheTTLHours       int  `toml:"cache_ttl_hours"`
	PersistArtifacts    bool `toml:"persist_artifacts"`
}

// Batch contains bulk-request scheduling settings.
type Batch struct {
	ChunkSize        int `toml:"chunk_size"`
	ChunkDelayMillis int `toml:"chunk_delay_ms"`
	CooldownMillis   int `toml:"cooldown_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for lingocast.
//
// Configuration sections by subsystem:
//   - Paths: cache, scratch, and log directories
//   - Sources: caption source instances and production mode
//   - Extractor: yt-dlp subprocess fallback
//   - LLM: inference endpoint and per-task models
//   - Pipeline: enrichment pacing and cache sizing
//   - Batch: bulk request chunking
//   - Logging: log format, level, and rotation
type Config struct {
	Paths     Paths     `toml:"paths"`
	Sources   Sources   `toml:"sources"`
	Extractor Extractor `toml:"extractor"`
	LLM       LLM       `toml:"llm"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Batch     Batch     `toml:"batch"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lingocast/config.toml")
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
		if err := decoder.Decode(&cfg); err != nil {
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lingocast.toml")
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

// EnsureDirectories creates the cache, scratch, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArtifactDBPath returns the location of the persisted artifact store.
func (c *Config) ArtifactDBPath() string {
	return filepath.Join(c.Paths.CacheDir, "artifacts.db")
}

// SourceTimeout returns the per-attempt HTTP timeout for caption sources.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.RequestTimeoutSeconds) * time.Second
}

// ExtractorTimeout returns the bound applied to one yt-dlp invocation.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// CacheTTL returns the lifetime of cached enrichment results.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Pipeline.CacheTTLHours) * time.Hour
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

// LLMConfig contains the inference settings consumed by the llm client.
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	DefaultModel      string
	Referer           string
	Title             string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Models            map[string]string
}

// GetLLM returns a copy of the inference settings.
func (c *Config) GetLLM() LLMConfig {
	models := make(map[string]string, len(c.LLM.Models))
	for task, model := range c.LLM.Models {
		models[task] = model
	}
	return LLMConfig{
		APIKey:            strings.TrimSpace(c.LLM.APIKey),
		BaseURL:           strings.TrimSpace(c.LLM.BaseURL),
		DefaultModel:      strings.TrimSpace(c.LLM.DefaultModel),
		Referer:           strings.TrimSpace(c.LLM.Referer),
		Title:             strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:    c.LLM.TimeoutSeconds,
		RequestsPerSecond: c.LLM.RequestsPerSecond,
		Models:            models,
	}
}
