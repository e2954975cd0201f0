package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lingocast/internal/pipeline"
)

type cacheReport struct {
	MemoryEntries int    `json:"memory_entries"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Evictions     uint64 `json:"evictions"`
	Persisted     int    `json:"persisted"`
	StorePath     string `json:"store_path,omitempty"`
}

func newCacheReport(status pipeline.CacheStatus) cacheReport {
	return cacheReport{
		MemoryEntries: status.Memory.Entries,
		Hits:          status.Memory.Hits,
		Misses:        status.Memory.Misses,
		Evictions:     status.Memory.Evictions,
		Persisted:     status.Persisted,
		StorePath:     status.StorePath,
	}
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached artifacts",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show artifact cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				status, err := svc.CacheStatus(runCtx)
				if err != nil {
					return err
				}
				report := newCacheReport(status)
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Memory:    %d artifacts\n", report.MemoryEntries)
				if report.StorePath == "" {
					fmt.Fprintln(out, "Persisted: disabled")
				} else {
					fmt.Fprintf(out, "Persisted: %d artifacts (%s)\n", report.Persisted, report.StorePath)
				}
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove persisted artifacts older than the cache TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				removed, err := svc.PruneCache(runCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired artifacts\n", removed)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				removed, err := svc.ClearCache(runCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d persisted artifacts\n", removed)
				return nil
			})
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "invalidate <url-or-id>",
		Short: "Forget the cached artifact for one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				if err := svc.Invalidate(runCtx, args[0], lang); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s (%s)\n", args[0], lang)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Learner language code")
	return cmd
}
