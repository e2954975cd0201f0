package enrich

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"lingocast/internal/textutil"
	"lingocast/internal/transcript"
)

//go:embed phrases.yaml
var phraseTableYAML []byte

type phraseRule struct {
	entry   Phrase
	pattern *regexp.Regexp
}

var loadPhraseTable = sync.OnceValues(func() ([]phraseRule, error) {
	var doc struct {
		Phrases []Phrase `yaml:"phrases"`
	}
	if err := yaml.Unmarshal(phraseTableYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode phrase table: %w", err)
	}
	rules := make([]phraseRule, 0, len(doc.Phrases))
	for _, p := range doc.Phrases {
		if !p.Type.Valid() || strings.TrimSpace(p.Phrase) == "" {
			return nil, fmt.Errorf("phrase table entry %q is invalid", p.Phrase)
		}
		p.Difficulty = DifficultyEasy
		rules = append(rules, phraseRule{
			entry:   p,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.Phrase) + `\b`),
		})
	}
	return rules, nil
})

// fallbackPhrases matches text against the built-in phrase table. Results are
// ordered by where they occur in text.
func fallbackPhrases(text string) []Phrase {
	rules, err := loadPhraseTable()
	if err != nil {
		return []Phrase{}
	}
	type hit struct {
		at     int
		phrase Phrase
	}
	hits := make([]hit, 0, 2)
	for _, rule := range rules {
		if loc := rule.pattern.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{at: loc[0], phrase: rule.entry})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })
	out := make([]Phrase, len(hits))
	for i, h := range hits {
		out[i] = h.phrase
	}
	return out
}

// fallbackComplexity grades text as B1 when it is long or uses long words,
// otherwise A2.
func fallbackComplexity(text string) Complexity {
	if textutil.WordCount(text) > 15 || textutil.LongestWord(text) >= 8 {
		return Complexity{
			Level:           LevelB1,
			Score:           6,
			GrammarPoints:   []string{},
			VocabularyLevel: VocabularyIntermediate,
			Tips:            []string{},
		}
	}
	return basicComplexity()
}

func basicComplexity() Complexity {
	return Complexity{
		Level:           LevelA2,
		Score:           3,
		GrammarPoints:   []string{},
		VocabularyLevel: VocabularyBasic,
		Tips:            []string{},
	}
}

// segment is one sentence span before enrichment.
type segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// fallbackSegments accumulates entries until one ends a sentence, emitting a
// span from the first accumulated start to the terminating entry's end.
func fallbackSegments(entries []transcript.Entry) []segment {
	segments := make([]segment, 0, len(entries)/2+1)
	var (
		parts []string
		start float64
	)
	for i, entry := range entries {
		text := textutil.CollapseWhitespace(entry.Text)
		if text == "" && i != len(entries)-1 {
			continue
		}
		if len(parts) == 0 {
			start = entry.Start
		}
		if text != "" {
			parts = append(parts, text)
		}
		if len(parts) > 0 && (textutil.EndsSentence(text) || i == len(entries)-1) {
			segments = append(segments, segment{
				Text:     strings.Join(parts, " "),
				Start:    start,
				Duration: max(entry.End()-start, 0),
			})
			parts = parts[:0]
		}
	}
	return segments
}
