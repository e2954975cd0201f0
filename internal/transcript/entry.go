package transcript

import "strings"

// Entry is one unit of raw caption text with a start time and duration in seconds.
type Entry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the entry's end offset.
func (e Entry) End() float64 {
	return e.Start + e.Duration
}

// JoinText concatenates entry texts with single spaces.
func JoinText(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Span returns the earliest start and latest end across entries.
func Span(entries []Entry) (float64, float64) {
	if len(entries) == 0 {
		return 0, 0
	}
	start := entries[0].Start
	end := entries[0].End()
	for _, entry := range entries[1:] {
		if entry.Start < start {
			start = entry.Start
		}
		if e := entry.End(); e > end {
			end = e
		}
	}
	return start, end
}
