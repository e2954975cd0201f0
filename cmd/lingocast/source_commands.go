package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lingocast/internal/pipeline"
	"lingocast/internal/sources"
	"lingocast/internal/transcript"
)

func newSourceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newVideoCommand(ctx),
		newCaptionsCommand(ctx),
		newAvailabilityCommand(ctx),
		newSearchCommand(ctx),
		newChannelCommand(ctx),
		newPlaylistCommand(ctx),
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <url-or-id>",
		Short: "Show metadata for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				details, err := svc.GetVideoDetails(runCtx, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, details)
				}
				rows := [][]string{
					{"ID", details.ID},
					{"Title", fallbackDash(details.Title)},
					{"Channel", fallbackDash(details.Channel)},
					{"Duration", formatDuration(details.DurationSeconds)},
					{"Views", formatCount(details.ViewCount)},
					{"Likes", formatCount(details.LikeCount)},
				}
				if details.Synthetic {
					rows = append(rows, []string{"Note", "placeholder data (all sources unavailable)"})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Field", "Value"},
					wide:    []bool{false, true},
				}, rows))
				return nil
			})
		},
	}
}

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "captions <url-or-id>",
		Short: "Fetch timed caption entries for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				entries, err := svc.ExtractCaptions(runCtx, args[0], lang)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if entries == nil {
						entries = []transcript.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{formatSpan(e.Start, e.Duration), e.Text})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Time", "Text"},
					wide:    []bool{false, true},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Caption language code")
	return cmd
}

func newAvailabilityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "availability <url-or-id>",
		Short: "Report which caption languages a video offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				avail, err := svc.CheckTranscriptAvailability(runCtx, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, avail)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Video:          %s\n", avail.VideoID)
				fmt.Fprintf(out, "Available:      %s\n", yesNo(avail.Available))
				fmt.Fprintf(out, "Languages:      %s\n", fallbackDash(strings.Join(avail.Languages, ", ")))
				fmt.Fprintf(out, "Auto-generated: %s\n", yesNo(avail.HasAutoGenerated))
				if avail.Synthetic {
					fmt.Fprintln(out, "Note:           placeholder data (all sources unavailable)")
				}
				return nil
			})
		},
	}
}

type listFlags struct {
	max   int
	token string
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.max, "max", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&f.token, "token", "", "Continuation token from a previous page")
}

func (f *listFlags) options() sources.ListOptions {
	return sources.ListOptions{MaxResults: f.max, Token: strings.TrimSpace(f.token)}
}

type listFunc func(ctx context.Context, svc *pipeline.Service, arg string, opts sources.ListOptions) (sources.Page, error)

func newListingCommand(ctx *commandContext, use, short string, list listFunc) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				page, err := list(runCtx, svc, arg, flags.options())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if page.Items == nil {
						page.Items = []sources.VideoSummary{}
					}
					return writeJSON(cmd, page)
				}
				renderPage(cmd, page)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return newListingCommand(ctx, "search <query>", "Search for videos", func(c context.Context, svc *pipeline.Service, arg string, opts sources.ListOptions) (sources.Page, error) {
		return svc.SearchVideos(c, arg, opts)
	})
}

func newChannelCommand(ctx *commandContext) *cobra.Command {
	return newListingCommand(ctx, "channel <channel-id>", "List a channel's videos", func(c context.Context, svc *pipeline.Service, arg string, opts sources.ListOptions) (sources.Page, error) {
		return svc.GetChannelVideos(c, arg, opts)
	})
}

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	return newListingCommand(ctx, "playlist <playlist-id>", "List the videos in a playlist", func(c context.Context, svc *pipeline.Service, arg string, opts sources.ListOptions) (sources.Page, error) {
		return svc.GetPlaylistItems(c, arg, opts)
	})
}

func renderPage(cmd *cobra.Command, page sources.Page) {
	out := cmd.OutOrStdout()
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No videos found")
		return
	}
	rows := make([][]string, 0, len(page.Items))
	for _, item := range page.Items {
		rows = append(rows, []string{
			item.ID,
			item.Title,
			fallbackDash(item.Channel),
			formatDuration(item.DurationSeconds),
			formatCount(item.ViewCount),
		})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"ID", "Title", "Channel", "Length", "Views"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		wide:    []bool{false, true, false, false, false},
	}, rows))
	if page.NextToken != "" {
		fmt.Fprintf(out, "Next page: --token %s\n", page.NextToken)
	}
}
