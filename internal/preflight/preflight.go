package preflight

import (
	"context"

	"lingocast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
// Inference is only checked when an API key is configured; without one the
// pipeline runs on its fallback heuristics.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
	}
	results = append(results, CheckSourcesFromConfig(ctx, cfg)...)

	if cfg.GetLLM().APIKey != "" {
		results = append(results, CheckLLM(ctx, "Inference API", cfg.GetLLM()))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
