package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lingocast/internal/config"
	"lingocast/internal/deps"
	"lingocast/internal/pipeline"
	"lingocast/internal/preflight"
)

type statusReport struct {
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
	Inference    preflight.Result   `json:"inference"`
	Production   bool               `json:"production"`
	Cache        cacheReport        `json:"cache"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check sources, inference, dependencies, and cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				cfg := svc.Config()
				report := statusReport{
					Checks:       preflight.RunAll(runCtx, cfg),
					Dependencies: preflight.CheckSystemDeps(runCtx, cfg),
					Inference:    preflight.CheckLLMFromConfig(runCtx, cfg),
					Production:   cfg.Sources.Production,
				}
				status, err := svc.CacheStatus(runCtx)
				if err != nil {
					return err
				}
				report.Cache = newCacheReport(status)

				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				printStatus(cmd, cfg, report)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, cfg *config.Config, report statusReport) {
	p := newStatusPrinter(cmd.OutOrStdout())

	p.section("Sources")
	for _, result := range report.Checks {
		if isSourceCheck(result) {
			p.check(result)
		}
	}
	mode := "Development (synthetic fallbacks enabled)"
	if report.Production {
		mode = "Production"
	}
	p.line("Mode", healthInfo, mode)

	p.section("Storage")
	for _, result := range report.Checks {
		if !isSourceCheck(result) {
			p.check(result)
		}
	}

	p.section("Inference")
	switch {
	case !report.Inference.Passed:
		p.line("Client", healthDown, report.Inference.Detail)
	case strings.TrimSpace(cfg.GetLLM().APIKey) == "":
		p.line("Client", healthInfo, report.Inference.Detail)
	default:
		p.line("Client", healthUp, report.Inference.Detail)
		p.line("Default model", healthInfo, cfg.GetLLM().DefaultModel)
	}

	p.section("Extractor")
	if len(report.Dependencies) == 0 {
		p.line("yt-dlp", healthInfo, "Disabled")
	}
	for _, dep := range report.Dependencies {
		p.dependency(dep)
	}

	p.section("Cache")
	c := report.Cache
	p.line("Artifacts in memory", healthInfo,
		fmt.Sprintf("%d (%d hits, %d misses)", c.MemoryEntries, c.Hits, c.Misses))
	if c.StorePath == "" {
		p.line("Artifact store", healthInfo, "Disabled")
	} else {
		p.line("Artifact store", healthInfo, fmt.Sprintf("%d artifacts in %s", c.Persisted, c.StorePath))
	}
}
