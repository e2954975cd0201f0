package transcript

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"lingocast/internal/services"
)

// Format identifies a caption payload shape.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatVTT   Format = "vtt"
	FormatSRT   Format = "srt"
	FormatJSON3 Format = "json3"
	FormatText  Format = "text"
)

// SyntheticDuration is the per-line duration assigned to plain text input.
const SyntheticDuration = 5.0

var (
	cueIndexRe  = regexp.MustCompile(`^\d+$`)
	markupTagRe = regexp.MustCompile(`<[^>]*>`)
)

// DetectFormat guesses the payload format from a filename extension, then
// from content.
func DetectFormat(raw []byte, filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vtt":
		return FormatVTT
	case ".srt":
		return FormatSRT
	case ".json3", ".json":
		return FormatJSON3
	case ".txt":
		return FormatText
	}
	return sniff(raw)
}

func sniff(raw []byte) Format {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	switch {
	case len(trimmed) == 0:
		return FormatText
	case trimmed[0] == '{':
		return FormatJSON3
	case bytes.HasPrefix(trimmed, []byte("WEBVTT")):
		return FormatVTT
	case bytes.Contains(trimmed, []byte("-->")):
		return FormatSRT
	default:
		return FormatText
	}
}

// Parse converts raw caption content into ordered entries. Malformed json3
// payloads yield an error marked services.ErrParse; the text formats never
// fail and return an empty slice for empty input.
func Parse(raw []byte, hint Format) ([]Entry, error) {
	format := hint
	if format == "" || format == FormatAuto {
		format = sniff(raw)
	}
	content := strings.TrimPrefix(string(raw), "\ufeff")
	switch format {
	case FormatJSON3:
		return parseJSON3([]byte(content))
	case FormatVTT, FormatSRT:
		return parseCues(content), nil
	case FormatText:
		return parsePlainLines(content), nil
	default:
		return nil, services.Wrap(services.ErrParse, "transcript", "parse", "unsupported format "+string(hint), nil)
	}
}

type cueState int

const (
	seekingCue cueState = iota
	inCueTimestamp
	inCueText
)

// parseCues walks VTT and SRT content with a three-state machine. A timestamp
// line or a blank line closes the open cue.
func parseCues(content string) []Entry {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	entries := make([]Entry, 0, len(lines)/3)

	state := seekingCue
	var current Entry
	var text []string
	skipBlock := false

	flush := func() {
		if state == inCueText || state == inCueTimestamp {
			if joined := strings.Join(text, " "); joined != "" {
				current.Text = joined
				entries = append(entries, current)
			}
		}
		current = Entry{}
		text = text[:0]
		state = seekingCue
	}

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)

		if line == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}
		if start, end, ok := parseTimingLine(line); ok {
			flush()
			current = Entry{Start: start, Duration: clampDuration(end - start)}
			state = inCueTimestamp
			continue
		}

		switch state {
		case seekingCue:
			// Headers, metadata, and cue identifiers carry no text.
			if strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION" {
				skipBlock = true
			}
		case inCueTimestamp, inCueText:
			if cueIndexRe.MatchString(line) {
				continue
			}
			if cleaned := cleanCueText(line); cleaned != "" {
				text = append(text, cleaned)
			}
			state = inCueText
		}
	}
	flush()
	return entries
}

func parseTimingLine(line string) (float64, float64, bool) {
	idx := strings.Index(line, "-->")
	if idx < 0 {
		return 0, 0, false
	}
	startText := strings.TrimSpace(line[:idx])
	rest := strings.Fields(strings.TrimSpace(line[idx+3:]))
	endText := ""
	if len(rest) > 0 {
		endText = rest[0]
	}
	return ParseTimestamp(startText), ParseTimestamp(endText), true
}

func cleanCueText(line string) string {
	cleaned := markupTagRe.ReplaceAllString(line, "")
	cleaned = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ", "&#39;", "'", "&quot;", "\"").Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

func parsePlainLines(content string) []Entry {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, Entry{
			Text:     line,
			Start:    float64(len(entries)) * SyntheticDuration,
			Duration: SyntheticDuration,
		})
	}
	return entries
}

func clampDuration(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}
