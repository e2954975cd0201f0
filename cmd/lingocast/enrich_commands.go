package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lingocast/internal/enrich"
	"lingocast/internal/pipeline"
)

func newEnrichCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newProcessCommand(ctx),
		newBreakdownCommand(ctx),
		newTranslateCommand(ctx),
		newComplexityCommand(ctx),
		newPhrasesCommand(ctx),
		newFixCommand(ctx),
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var showSentences bool
	cmd := &cobra.Command{
		Use:   "process <url-or-id>",
		Short: "Fetch captions and build an enriched learning artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				artifact, err := svc.ProcessVideo(runCtx, args[0], lang)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, artifact)
				}
				renderArtifact(cmd, artifact, showSentences)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Learner language code (translation target)")
	cmd.Flags().BoolVarP(&showSentences, "sentences", "s", false, "List every sentence")
	return cmd
}

func renderArtifact(cmd *cobra.Command, artifact *enrich.Artifact, showSentences bool) {
	out := cmd.OutOrStdout()
	in := artifact.Insights
	fmt.Fprintf(out, "Video:        %s (%s)\n", artifact.VideoID, artifact.Language)
	fmt.Fprintf(out, "Sentences:    %d\n", in.TotalSentences)
	fmt.Fprintf(out, "Words:        %d (avg %d per sentence)\n", in.TotalWords, in.AverageSentenceLength)
	fmt.Fprintf(out, "Phrases:      %d\n", in.TotalPhrases)
	fmt.Fprintf(out, "Difficulty:   %s\n", fallbackDash(string(in.MostCommonDifficulty)))
	fmt.Fprintf(out, "Distribution: %s\n", fallbackDash(formatDistribution(in.DifficultyDistribution)))
	fmt.Fprintf(out, "Study time:   ~%dh\n", in.EstimatedLearningTimeHours)
	if len(in.RecommendedFocus) > 0 {
		fmt.Fprintf(out, "Focus:        %s\n", strings.Join(in.RecommendedFocus, "; "))
	}
	if artifact.Degraded {
		fmt.Fprintln(out, "Note:         enrichment failed; sentences are raw caption entries")
	}
	if artifact.Synthetic {
		fmt.Fprintln(out, "Note:         sources unavailable; built from a placeholder transcript")
	}
	if !showSentences || len(artifact.Sentences) == 0 {
		return
	}
	rows := make([][]string, 0, len(artifact.Sentences))
	for _, s := range artifact.Sentences {
		rows = append(rows, []string{
			s.ID,
			formatSpan(s.StartTime, s.Duration),
			string(s.Complexity.Level),
			s.OriginalText,
			s.TranslatedText,
			fallbackDash(phraseList(s.Phrases)),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"ID", "Time", "Level", "Sentence", "Translation", "Phrases"},
		wide:    []bool{false, false, false, true, true, true},
	}, rows))
}

func formatDistribution(dist map[enrich.Level]int) string {
	levels := make([]string, 0, len(dist))
	for level := range dist {
		levels = append(levels, string(level))
	}
	sort.Strings(levels)
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		parts = append(parts, level+"="+strconv.Itoa(dist[enrich.Level(level)]))
	}
	return strings.Join(parts, " ")
}

func newBreakdownCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "breakdown <url-or-id> <sentence-id>",
		Short: "Explain one sentence of a processed video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				artifact, err := svc.ProcessVideo(runCtx, args[0], lang)
				if err != nil {
					return err
				}
				breakdown, err := svc.GetPhraseBreakdown(runCtx, strings.TrimSpace(args[1]), artifact.Sentences)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, breakdown)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sentence:    %s\n", breakdown.OriginalText)
				fmt.Fprintf(out, "Translation: %s\n", breakdown.TranslatedText)
				fmt.Fprintf(out, "Level:       %s (score %d, vocabulary %s)\n",
					breakdown.Complexity.Level, breakdown.Complexity.Score, breakdown.Complexity.VocabularyLevel)
				if len(breakdown.Phrases) > 0 {
					fmt.Fprintln(out)
					renderPhrases(cmd, breakdown.Phrases)
				}
				if len(breakdown.LearningTips) > 0 {
					fmt.Fprintln(out, "\nTips:")
					for _, tip := range breakdown.LearningTips {
						fmt.Fprintf(out, "  - %s\n", tip)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Learner language code (translation target)")
	return cmd
}

// batchResult is the JSON shape of one batch translation outcome.
type batchResult struct {
	Label       string `json:"label"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var target, hint string
	var each bool
	cmd := &cobra.Command{
		Use:   "translate <text...>",
		Short: "Translate text (use - to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if each {
				return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
					return translateEach(runCtx, cmd, ctx, svc, args, target)
				})
			}
			text, err := readTextArgs(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				translated, err := svc.TranslateText(runCtx, text, target, hint)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"text": text, "target": target, "translation": translated})
				}
				fmt.Fprintln(cmd.OutOrStdout(), translated)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&target, "to", "t", "en", "Target language code")
	cmd.Flags().StringVar(&hint, "context", "", "Surrounding context to guide the translation")
	cmd.Flags().BoolVar(&each, "each", false, "Translate each argument separately through the batch queue")
	return cmd
}

func translateEach(ctx context.Context, cmd *cobra.Command, cc *commandContext, svc *pipeline.Service, texts []string, target string) error {
	outcomes, err := svc.TranslateBatch(ctx, texts, target)
	if err != nil {
		return err
	}
	results := make([]batchResult, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		results[i] = batchResult{Label: o.Label, Text: texts[i], Translation: o.Value}
		if o.Err != nil {
			results[i].Error = o.Err.Error()
			failed++
		}
	}
	if cc.jsonOutput() {
		return writeJSON(cmd, results)
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		value := r.Translation
		if r.Error != "" {
			value = "error: " + r.Error
		}
		rows = append(rows, []string{r.Label, r.Text, value})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
		headers: []string{"#", "Text", "Translation"},
		wide:    []bool{false, true, true},
	}, rows))
	if failed > 0 {
		return fmt.Errorf("%d of %d translations failed", failed, len(results))
	}
	return nil
}

func newComplexityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complexity <text...>",
		Short: "Grade the difficulty of text (use - to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextArgs(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				c, err := svc.AnalyzeComplexity(runCtx, text)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, c)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Level:      %s\n", c.Level)
				fmt.Fprintf(out, "Score:      %d\n", c.Score)
				fmt.Fprintf(out, "Vocabulary: %s\n", c.VocabularyLevel)
				if len(c.GrammarPoints) > 0 {
					fmt.Fprintf(out, "Grammar:    %s\n", strings.Join(c.GrammarPoints, ", "))
				}
				for _, tip := range c.Tips {
					fmt.Fprintf(out, "  - %s\n", tip)
				}
				return nil
			})
		},
	}
}

func newPhrasesCommand(ctx *commandContext) *cobra.Command {
	var hint string
	cmd := &cobra.Command{
		Use:   "phrases <text...>",
		Short: "List learnable phrases in text (use - to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextArgs(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				phrases, err := svc.ExtractPhrases(runCtx, text, hint)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if phrases == nil {
						phrases = []enrich.Phrase{}
					}
					return writeJSON(cmd, phrases)
				}
				if len(phrases) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No phrases found")
					return nil
				}
				renderPhrases(cmd, phrases)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hint, "context", "", "Surrounding context for the text")
	return cmd
}

func renderPhrases(cmd *cobra.Command, phrases []enrich.Phrase) {
	rows := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		rows = append(rows, []string{p.Phrase, string(p.Type), string(p.Difficulty), p.Meaning})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
		headers: []string{"Phrase", "Type", "Difficulty", "Meaning"},
		wide:    []bool{false, false, false, true},
	}, rows))
}

func newFixCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "fix <text...>",
		Short: "Restore punctuation and casing in raw caption text (use - to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextArgs(cmd, args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *pipeline.Service) error {
				fixed, err := svc.FixTranscript(runCtx, text, lang)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"text": fixed})
				}
				fmt.Fprintln(cmd.OutOrStdout(), fixed)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "Text language code")
	return cmd
}
