package sources

import (
	"hash/fnv"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"

	"lingocast/internal/transcript"
)

const syntheticCueSeconds = 5.0

var syntheticLines = []string{
	"Welcome to this practice session.",
	"Today we are going to talk about everyday routines.",
	"Most people wake up early and make a cup of coffee.",
	"After breakfast, they get ready for work or school.",
	"In the evening, it is nice to take it easy and relax.",
	"Thanks for watching, and see you next time!",
}

var titleCaser = cases.Title(xlang.English)

// syntheticDetails builds a stable placeholder record for id.
func syntheticDetails(id string) VideoDetails {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	seed := h.Sum32()
	return VideoDetails{
		ID:              id,
		Title:           titleCaser.String("offline practice video") + " " + id,
		Description:     "Placeholder details generated while caption sources were unreachable.",
		DurationSeconds: int64(len(syntheticLines))*int64(syntheticCueSeconds) + int64(seed%240),
		Channel:         "lingocast",
		Synthetic:       true,
	}
}

// syntheticEntries returns the placeholder transcript served in development
// when no caption source responds.
func syntheticEntries() []transcript.Entry {
	entries := make([]transcript.Entry, len(syntheticLines))
	for i, line := range syntheticLines {
		entries[i] = transcript.Entry{
			Text:     line,
			Start:    float64(i) * syntheticCueSeconds,
			Duration: syntheticCueSeconds,
		}
	}
	return entries
}
