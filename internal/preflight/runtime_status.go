package preflight

import (
	"context"

	"lingocast/internal/config"
)

// CheckSourcesFromConfig probes every configured caption source instance in
// failover order.
func CheckSourcesFromConfig(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := make([]Result, 0, len(cfg.Sources.Instances))
	for _, endpoint := range cfg.Sources.Instances {
		results = append(results, CheckSource(ctx, endpoint, cfg.Sources.UserAgent, cfg.SourceTimeout()))
	}
	if len(results) == 0 {
		results = append(results, Result{Name: "Sources", Detail: "no instances configured"})
	}
	return results
}

// CheckLLMFromConfig evaluates inference status for status displays. A missing
// key is reported as passing because enrichment falls back to heuristics.
func CheckLLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Inference API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	llmCfg := cfg.GetLLM()
	if llmCfg.APIKey == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled (fallback heuristics)"}
	}
	return CheckLLM(ctx, name, llmCfg)
}
