package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lingocast/internal/enrich"
	"lingocast/internal/transcript"
)

// readTextArgs joins args into one text. A single "-" reads standard input.
func readTextArgs(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		args = []string{string(data)}
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("text is required (pass it as arguments or use - for stdin)")
	}
	return text, nil
}

func formatSpan(start, duration float64) string {
	return transcript.FormatTimestamp(start) + " → " + transcript.FormatTimestamp(start+duration)
}

func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func formatDuration(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func phraseList(phrases []enrich.Phrase) string {
	names := make([]string, 0, len(phrases))
	for _, p := range phrases {
		names = append(names, p.Phrase)
	}
	return strings.Join(names, ", ")
}

func fallbackDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
