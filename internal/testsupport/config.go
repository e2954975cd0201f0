package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lingocast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Sources.Instances = []string{"http://127.0.0.1:1"}
	cfgVal.LLM.APIKey = ""
	cfgVal.LLM.RequestsPerSecond = 0
	cfgVal.Pipeline.SentenceDelayMillis = 0
	cfgVal.Pipeline.PersistArtifacts = false
	cfgVal.Batch.ChunkDelayMillis = 0
	cfgVal.Batch.CooldownMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithInstances sets the caption source instances on the test config.
func WithInstances(urls ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.Instances = append([]string(nil), urls...)
	}
}

// WithLLM points the inference client at baseURL with the given key.
func WithLLM(baseURL, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.APIKey = apiKey
	}
}

// WithProduction toggles production mode, which disables synthetic fallbacks.
func WithProduction(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.Production = enabled
	}
}

// WithPersistedArtifacts enables the SQLite artifact tier.
func WithPersistedArtifacts() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.PersistArtifacts = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, yt-dlp is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteExecutable(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
